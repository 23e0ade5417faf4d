package discord

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// reply locates the bot message answering a user message.
type reply struct {
	ChannelID string
	MessageID string
}

// replyCache maps recent user message IDs to the bot's reply, so edits and
// deletions of the user message can follow through. Old entries are evicted
// once the cache is full.
type replyCache struct {
	cache *lru.Cache[string, reply]
}

func newReplyCache(size int) (*replyCache, error) {
	if size <= 0 {
		size = 512
	}
	c, err := lru.New[string, reply](size)
	if err != nil {
		return nil, err
	}
	return &replyCache{cache: c}, nil
}

func (rc *replyCache) put(userMsgID string, r reply) {
	rc.cache.Add(userMsgID, r)
}

func (rc *replyCache) get(userMsgID string) (reply, bool) {
	return rc.cache.Get(userMsgID)
}

func (rc *replyCache) remove(userMsgID string) {
	rc.cache.Remove(userMsgID)
}

func (rc *replyCache) len() int {
	return rc.cache.Len()
}
