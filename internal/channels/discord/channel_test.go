package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/goleak"

	"github.com/rendello/TTD2-Bot/internal/index"
	"github.com/rendello/TTD2-Bot/internal/index/indextest"
	"github.com/rendello/TTD2-Bot/internal/lookup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAPI struct {
	mu      sync.Mutex
	next    int
	sent    []*discordgo.MessageSend
	edits   []*discordgo.MessageEdit
	deleted []string
	status  []string
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: fmt.Sprintf("reply-%d", f.next), ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeAPI) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) UpdateGameStatus(_ int, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = append(f.status, name)
	return nil
}

func newTestChannel(t *testing.T, opts Options) (*Channel, *fakeAPI) {
	t.Helper()
	h := indextest.Build(t)
	holder := index.NewHolder(h)
	engine := lookup.NewEngine(holder, lookup.DefaultOptions())

	api := &fakeAPI{}
	c, err := newChannel(api, api, engine, holder, opts)
	if err != nil {
		t.Fatalf("newChannel: %v", err)
	}
	t.Cleanup(c.Stop)
	return c, api
}

func userMessage(id, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		ChannelID: "chan",
		Content:   content,
		Author:    &discordgo.User{ID: "user"},
	}
}

func TestChannel_CreateRepliesWithEmbed(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "what does %%Adam do"))
	if len(api.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(api.sent))
	}
	embed := api.sent[0].Embeds[0]
	if len(embed.Fields) != 2 || embed.Fields[0].Name != "Adam" {
		t.Errorf("embed fields = %+v", embed.Fields)
	}
	if r, ok := c.replies.get("m1"); !ok || r.MessageID != "reply-1" || r.ChannelID != "chan" {
		t.Errorf("reply not cached: %+v, %v", r, ok)
	}
}

func TestChannel_CreateIgnores(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "no lookups here"))

	bot := userMessage("m2", "%%Adam")
	bot.Author.Bot = true
	c.handleCreate(ctx, bot)

	c.handleCreate(ctx, &discordgo.Message{ID: "m3", Content: "%%Adam"})

	if len(api.sent) != 0 {
		t.Errorf("sent %d replies, want 0", len(api.sent))
	}
}

func TestChannel_CreateDeduplicates(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "%%Adam"))
	c.handleCreate(ctx, userMessage("m1", "%%Adam"))
	if len(api.sent) != 1 {
		t.Errorf("sent %d replies, want 1", len(api.sent))
	}
}

func TestChannel_RateLimited(t *testing.T) {
	c, api := newTestChannel(t, Options{RateLimitRPM: 1, RateLimitBurst: 1})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "%%Adam"))
	c.handleCreate(ctx, userMessage("m2", "%%Cd"))
	if len(api.sent) != 1 {
		t.Errorf("sent %d replies, want 1", len(api.sent))
	}
}

func TestChannel_RateLimitedSkipsPipeline(t *testing.T) {
	c, api := newTestChannel(t, Options{RateLimitRPM: 1, RateLimitBurst: 1})
	ctx := context.Background()

	calls := 0
	process := c.process
	c.process = func(ctx context.Context, text string) []lookup.DisplayRecord {
		calls++
		return process(ctx, text)
	}

	// Chatter without a marker neither runs the pipeline nor spends the token.
	c.handleCreate(ctx, userMessage("m0", "hello there"))
	c.handleCreate(ctx, userMessage("m1", "%%Adam"))
	c.handleCreate(ctx, userMessage("m2", "%%Cd"))
	c.handleUpdate(ctx, userMessage("m1", "%%DocClear"))

	if calls != 1 {
		t.Errorf("pipeline ran %d times, want 1", calls)
	}
	if len(api.sent) != 1 || len(api.edits) != 0 {
		t.Errorf("sent = %d, edits = %d, want 1 and 0", len(api.sent), len(api.edits))
	}
	if _, ok := c.replies.get("m1"); !ok {
		t.Error("rate-limited edit must keep the existing reply")
	}
}

func TestChannel_EditUpdatesReply(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "%%Adam"))
	c.handleUpdate(ctx, userMessage("m1", "%%Cd"))

	if len(api.edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(api.edits))
	}
	edit := api.edits[0]
	if edit.ID != "reply-1" || edit.Channel != "chan" {
		t.Errorf("edited %s/%s, want chan/reply-1", edit.Channel, edit.ID)
	}
	if edit.Embeds == nil || len(*edit.Embeds) != 1 || (*edit.Embeds)[0].Fields[0].Name != "Cd" {
		t.Errorf("edit embeds = %+v", edit.Embeds)
	}
}

func TestChannel_EditRemovingLookupsDeletesReply(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "%%Adam"))
	c.handleUpdate(ctx, userMessage("m1", "never mind"))

	if len(api.deleted) != 1 || api.deleted[0] != "reply-1" {
		t.Errorf("deleted = %v, want [reply-1]", api.deleted)
	}
	if _, ok := c.replies.get("m1"); ok {
		t.Error("reply still cached after delete")
	}
}

func TestChannel_EditAddingLookupsReplies(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "hello"))
	c.handleUpdate(ctx, userMessage("m1", "hello %%Adam"))
	if len(api.sent) != 1 {
		t.Errorf("sent %d replies, want 1", len(api.sent))
	}

	// Unfurl updates carry no content and must not touch the reply.
	c.handleUpdate(ctx, &discordgo.Message{ID: "m1", ChannelID: "chan"})
	if len(api.deleted) != 0 || len(api.edits) != 0 {
		t.Errorf("unfurl update changed the reply: deleted=%v edits=%d", api.deleted, len(api.edits))
	}
}

func TestChannel_DeleteRemovesReply(t *testing.T) {
	c, api := newTestChannel(t, Options{})
	ctx := context.Background()

	c.handleCreate(ctx, userMessage("m1", "%%Adam"))
	c.handleDelete(&discordgo.Message{ID: "m1", ChannelID: "chan"})
	c.handleDelete(&discordgo.Message{ID: "unknown", ChannelID: "chan"})

	if len(api.deleted) != 1 || api.deleted[0] != "reply-1" {
		t.Errorf("deleted = %v, want [reply-1]", api.deleted)
	}
}

func TestChannel_ReplyCacheBounded(t *testing.T) {
	c, _ := newTestChannel(t, Options{ReplyCacheSize: 2})
	ctx := context.Background()

	for i := range 4 {
		c.handleCreate(ctx, userMessage(fmt.Sprintf("m%d", i), "%%Adam"))
	}
	if n := c.replies.len(); n != 2 {
		t.Errorf("cached replies = %d, want 2", n)
	}
	if _, ok := c.replies.get("m0"); ok {
		t.Error("oldest reply should have been evicted")
	}
}

func TestChannel_RandomEntryAfterClose(t *testing.T) {
	h := indextest.Build(t)
	holder := index.NewHolder(h)
	c, err := newChannel(&fakeAPI{}, &fakeAPI{}, lookup.NewEngine(holder, lookup.DefaultOptions()), holder, Options{})
	if err != nil {
		t.Fatalf("newChannel: %v", err)
	}
	t.Cleanup(c.Stop)

	holder.Close()
	if _, err := c.randomEntry(context.Background()); !errors.Is(err, index.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestChannel_RandomEntry(t *testing.T) {
	c, _ := newTestChannel(t, Options{})
	entry, err := c.randomEntry(context.Background())
	if err != nil || entry == "" {
		t.Errorf("randomEntry = %q, %v", entry, err)
	}
}
