package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PresenceStore mirrors live presence in Redis: an online-users set for fast
// dashboard reads and short-lived typing sets per conversation. The Postgres
// presence_records table stays the system of record; this layer is ephemeral.
// ttl bounds how long a last-seen key outlives the user's last activity.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

const (
	presenceOnlineSet = "presence:online"
	lastSeenKeyPrefix = "presence:last_seen:"
	typingKeyPrefix   = "typing:"

	typingTTL = 10 * time.Second
)

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &PresenceStore{client: client, ttl: ttl}
}

// SetOnline adds the user to the online set and records last seen.
func (p *PresenceStore) SetOnline(ctx context.Context, userID string) error {
	now := time.Now()

	pipe := p.client.Pipeline()
	pipe.SAdd(ctx, presenceOnlineSet, userID)
	pipe.Set(ctx, lastSeenKeyPrefix+userID, now.UTC().Format(time.RFC3339), p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// SetOffline removes the user from the online set, keeping last seen around
// for later queries.
func (p *PresenceStore) SetOffline(ctx context.Context, userID string) error {
	now := time.Now()

	pipe := p.client.Pipeline()
	pipe.SRem(ctx, presenceOnlineSet, userID)
	pipe.Set(ctx, lastSeenKeyPrefix+userID, now.UTC().Format(time.RFC3339), p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// TrackTyping sets or clears a typing indicator for a user in a conversation.
// The set expires on its own so a vanished client never leaves a stale flag.
func (p *PresenceStore) TrackTyping(ctx context.Context, conversationID, userID string, isTyping bool) error {
	key := fmt.Sprintf("%s%s", typingKeyPrefix, conversationID)

	if isTyping {
		pipe := p.client.Pipeline()
		pipe.SAdd(ctx, key, userID)
		pipe.Expire(ctx, key, typingTTL)
		_, err := pipe.Exec(ctx)
		return err
	}

	return p.client.SRem(ctx, key, userID).Err()
}

// TypingUsers returns users currently typing in a conversation
func (p *PresenceStore) TypingUsers(ctx context.Context, conversationID string) ([]string, error) {
	key := fmt.Sprintf("%s%s", typingKeyPrefix, conversationID)
	return p.client.SMembers(ctx, key).Result()
}
