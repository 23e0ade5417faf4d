package discord

import (
	"context"
	"log/slog"
	"time"
)

// RandomEntryFunc returns a random symbol name, basename or path.
type RandomEntryFunc func(ctx context.Context) (string, error)

// statusCycle alternates the configured usage statuses with examples drawn
// from the index.
type statusCycle struct {
	statuses []string
	random   RandomEntryFunc
	i        int
}

func newStatusCycle(statuses []string, random RandomEntryFunc) *statusCycle {
	return &statusCycle{statuses: statuses, random: random}
}

func (sc *statusCycle) next(ctx context.Context) string {
	defer func() { sc.i++ }()

	if sc.i%2 == 1 && sc.random != nil {
		entry, err := sc.random(ctx)
		if err == nil && entry != "" {
			return "Example: %%" + entry
		}
		if err != nil {
			slog.Debug("presence example failed", "error", err)
		}
	}
	if len(sc.statuses) == 0 {
		return "Usage: %%<function>"
	}
	return sc.statuses[(sc.i/2)%len(sc.statuses)]
}

// rotatePresence updates the bot status every interval until ctx is done.
func (c *Channel) rotatePresence(ctx context.Context, cycle *statusCycle, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status := cycle.next(ctx)
		if err := c.presence.UpdateGameStatus(0, status); err != nil {
			slog.Warn("discord presence update failed", "status", status, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
