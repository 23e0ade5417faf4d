// Package discord answers %% lookups posted in Discord channels.
//
// Every message is run through the lookup engine; a non-empty result is
// posted as an embed reply. Replies follow their message: editing the
// message re-renders the reply and deleting it removes the reply.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rendello/TTD2-Bot/internal/index"
	"github.com/rendello/TTD2-Bot/internal/lookup"
)

const (
	intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	// Gateway resumes can replay recent events.
	dedupeTTL     = 10 * time.Minute
	dedupeMaxSize = 5000
)

// messenger is the subset of *discordgo.Session used to answer messages.
type messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

type presenceUpdater interface {
	UpdateGameStatus(idle int, name string) error
}

// Options configures the channel.
type Options struct {
	Statuses       []string
	StatusInterval time.Duration
	RateLimitRPM   int
	RateLimitBurst int
	ReplyCacheSize int
}

// Channel is a Discord bot connection serving lookups.
type Channel struct {
	session  *discordgo.Session
	api      messenger
	presence presenceUpdater

	process func(ctx context.Context, text string) []lookup.DisplayRecord
	holder  *index.Holder
	opts    Options

	limiter *RateLimiter
	dedupe  *DedupeCache
	replies *replyCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a channel authenticating with token. Call Start to connect.
func New(token string, engine *lookup.Engine, holder *index.Holder, opts Options) (*Channel, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = intents

	c, err := newChannel(session, session, engine, holder, opts)
	if err != nil {
		return nil, err
	}
	c.session = session
	return c, nil
}

func newChannel(api messenger, presence presenceUpdater, engine *lookup.Engine, holder *index.Holder, opts Options) (*Channel, error) {
	replies, err := newReplyCache(opts.ReplyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create reply cache: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		api:      api,
		presence: presence,
		process:  engine.Process,
		holder:   holder,
		opts:     opts,
		limiter:  NewRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst),
		dedupe:   NewDedupeCache(dedupeTTL, dedupeMaxSize),
		replies:  replies,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start registers the event handlers and opens the gateway connection.
func (c *Channel) Start(ctx context.Context) error {
	c.session.AddHandler(c.onReady)
	c.session.AddHandler(c.onMessageCreate)
	c.session.AddHandler(c.onMessageUpdate)
	c.session.AddHandler(c.onMessageDelete)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	cycle := newStatusCycle(c.opts.Statuses, c.randomEntry)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.rotatePresence(c.ctx, cycle, c.opts.StatusInterval)
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.ctx.Done():
		}
	}()
	return nil
}

// Stop closes the connection and waits for background work.
func (c *Channel) Stop() {
	select {
	case <-c.ctx.Done():
		return
	default:
	}
	c.cancel()
	c.wg.Wait()
	c.limiter.Stop()
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			slog.Warn("discord close failed", "error", err)
		}
	}
	slog.Info("discord channel stopped")
}

func (c *Channel) randomEntry(ctx context.Context) (string, error) {
	h, release := c.holder.Acquire()
	defer release()
	if h == nil {
		return "", index.ErrClosed
	}
	return h.Random(ctx, h.DefaultVersion())
}

func (c *Channel) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord connected", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (c *Channel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	c.handleCreate(c.ctx, m.Message)
}

func (c *Channel) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	c.handleUpdate(c.ctx, m.Message)
}

func (c *Channel) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	c.handleDelete(m.Message)
}

// fromUser reports whether m was written by a human.
func fromUser(m *discordgo.Message) bool {
	return m != nil && m.Author != nil && !m.Author.Bot
}

// hasMarker is the cheap pre-check run before rate limiting; only messages
// that may hold lookups cost the author a token.
func hasMarker(content string) bool {
	return strings.Contains(content, "%%")
}

func (c *Channel) handleCreate(ctx context.Context, m *discordgo.Message) {
	if !fromUser(m) || !hasMarker(m.Content) {
		return
	}
	if c.dedupe.IsDuplicate(m.ID) {
		return
	}
	if !c.limiter.Allow(m.Author.ID) {
		return
	}

	records := c.process(ctx, m.Content)
	if len(records) == 0 {
		return
	}
	c.sendReply(m, records)
}

// handleUpdate re-renders the reply of an edited message, posting one if
// the edit introduced lookups and removing it if the edit dropped them.
// A rate-limited edit leaves the existing reply untouched.
func (c *Channel) handleUpdate(ctx context.Context, m *discordgo.Message) {
	// Embed unfurls arrive as updates without author or content.
	if !fromUser(m) || m.Content == "" {
		return
	}
	prev, hasReply := c.replies.get(m.ID)

	if !hasMarker(m.Content) {
		if hasReply {
			c.deleteReply(m.ID, prev)
		}
		return
	}
	if !c.limiter.Allow(m.Author.ID) {
		return
	}

	records := c.process(ctx, m.Content)
	switch {
	case hasReply && len(records) == 0:
		c.deleteReply(m.ID, prev)

	case hasReply:
		edit := discordgo.NewMessageEdit(prev.ChannelID, prev.MessageID).SetEmbed(RenderEmbed(records))
		if _, err := c.api.ChannelMessageEditComplex(edit); err != nil {
			slog.Warn("discord reply edit failed", "channel", prev.ChannelID, "reply", prev.MessageID, "error", err)
		}

	case len(records) > 0:
		c.sendReply(m, records)
	}
}

func (c *Channel) sendReply(m *discordgo.Message, records []lookup.DisplayRecord) {
	sent, err := c.api.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{RenderEmbed(records)},
	})
	if err != nil {
		slog.Warn("discord reply failed", "channel", m.ChannelID, "message", m.ID, "error", err)
		return
	}
	c.replies.put(m.ID, reply{ChannelID: sent.ChannelID, MessageID: sent.ID})
	slog.Debug("discord lookup answered", "channel", m.ChannelID, "message", m.ID, "records", len(records))
}

func (c *Channel) handleDelete(m *discordgo.Message) {
	if m == nil {
		return
	}
	if prev, ok := c.replies.get(m.ID); ok {
		c.deleteReply(m.ID, prev)
	}
}

func (c *Channel) deleteReply(userMsgID string, r reply) {
	c.replies.remove(userMsgID)
	if err := c.api.ChannelMessageDelete(r.ChannelID, r.MessageID); err != nil {
		slog.Warn("discord reply delete failed", "channel", r.ChannelID, "reply", r.MessageID, "error", err)
	}
}
