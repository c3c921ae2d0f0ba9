package token

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedKeyPrefix  = "revoked:"
	consumedKeyPrefix = "consumed:"
)

// RevocationStore tracks token IDs that must no longer be accepted: session
// tokens revoked at logout and reset tokens already spent. Entries carry the
// remaining token lifetime as TTL so Redis expires them alongside the tokens
// they block.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore constructs a RevocationStore.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke denylists a session token ID for ttl.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("token: revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether a session token ID has been denylisted.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("token: check revoked: %w", err)
	}
	return n > 0, nil
}

// Consume marks a reset token ID as spent. The first call for a given ID
// returns true; any replay returns false.
func (s *RevocationStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	first, err := s.client.SetNX(ctx, consumedKeyPrefix+jti, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("token: consume: %w", err)
	}
	return first, nil
}

// Release drops a consumed-token reservation. Called when the write the
// reservation guarded failed, so the token stays usable for a retry.
func (s *RevocationStore) Release(ctx context.Context, jti string) error {
	if jti == "" {
		return nil
	}
	if err := s.client.Del(ctx, consumedKeyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("token: release: %w", err)
	}
	return nil
}
