package discord

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestStatusCycle_AlternatesUsageAndExamples(t *testing.T) {
	random := func(context.Context) (string, error) { return "DocClear", nil }
	sc := newStatusCycle([]string{"Usage: %%<function>", "Usage: %%<path>"}, random)

	var got []string
	for range 5 {
		got = append(got, sc.next(context.Background()))
	}
	want := []string{
		"Usage: %%<function>",
		"Example: %%DocClear",
		"Usage: %%<path>",
		"Example: %%DocClear",
		"Usage: %%<function>",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("statuses = %q, want %q", got, want)
	}
}

func TestStatusCycle_RandomFailureFallsBack(t *testing.T) {
	random := func(context.Context) (string, error) { return "", errors.New("closed") }
	sc := newStatusCycle(nil, random)

	for range 3 {
		if s := sc.next(context.Background()); s != "Usage: %%<function>" {
			t.Errorf("status = %q, want the usage fallback", s)
		}
	}
}

func TestChannel_RotatePresence(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	cycle := newStatusCycle([]string{"Usage: %%<function>"}, c.randomEntry)
	done := make(chan struct{})
	go func() {
		c.rotatePresence(ctx, cycle, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		api.mu.Lock()
		n := len(api.status)
		api.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("presence updated %d times, want at least 2", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.status[0] != "Usage: %%<function>" {
		t.Errorf("first status = %q", api.status[0])
	}
}
