package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"convertly-shopify-app/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StateTTL is how long an issued OAuth state token stays valid.
const StateTTL = 10 * time.Minute

const stateKeyPrefix = "oauth_state:"

// stateTier is one storage tier of the tiered state store. Save binds a
// token to a shop domain with the TTL; Consume removes the token and
// returns the bound shop, reporting whether it existed.
type stateTier interface {
	Save(ctx context.Context, token, shopDomain string) error
	Consume(ctx context.Context, token string) (string, bool)
	Sweep(ctx context.Context)
}

// RedisStateStore is the durable tier: it survives across server instances,
// which matters because the install and callback requests may not hit the
// same process.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStateStore creates the Redis-backed tier.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: StateTTL}
}

func (s *RedisStateStore) Save(ctx context.Context, token, shopDomain string) error {
	if err := s.client.Set(ctx, stateKeyPrefix+token, shopDomain, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, token string) (string, bool) {
	// GETDEL makes lookup and single-use deletion one atomic step.
	shop, err := s.client.GetDel(ctx, stateKeyPrefix+token).Result()
	if err != nil {
		return "", false
	}
	return shop, true
}

// Sweep is a no-op: Redis expires state keys via TTL.
func (s *RedisStateStore) Sweep(ctx context.Context) {}

// MemoryStateStore is the process-local secondary tier. It only helps when
// install and callback land on the same instance; the durable tier is
// always checked first.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
	ttl    time.Duration
	now    func() time.Time
}

type memoryState struct {
	shop      string
	expiresAt time.Time
}

// NewMemoryStateStore creates the in-process tier.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]memoryState),
		ttl:    StateTTL,
		now:    time.Now,
	}
}

func (s *MemoryStateStore) Save(ctx context.Context, token, shopDomain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[token] = memoryState{shop: shopDomain, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[token]
	if !ok {
		return "", false
	}
	delete(s.states, token)
	if s.now().After(st.expiresAt) {
		return "", false
	}
	return st.shop, true
}

func (s *MemoryStateStore) Sweep(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, st := range s.states {
		if now.After(st.expiresAt) {
			delete(s.states, token)
		}
	}
}

// TieredStateStore implements ports.StateStore over a durable primary tier
// and an optional process-local secondary. Tokens are written to both on
// issue and consumed from the primary first.
type TieredStateStore struct {
	primary   stateTier
	secondary stateTier
	logger    zerolog.Logger
}

// NewTieredStateStore creates the store. secondary may be nil.
func NewTieredStateStore(primary, secondary stateTier, logger zerolog.Logger) *TieredStateStore {
	return &TieredStateStore{primary: primary, secondary: secondary, logger: logger}
}

var _ ports.StateStore = (*TieredStateStore)(nil)

// Issue generates a 128-bit random token bound to the shop domain.
func (s *TieredStateStore) Issue(ctx context.Context, shopDomain string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.primary.Save(ctx, token, shopDomain); err != nil {
		return "", err
	}
	if s.secondary != nil {
		if err := s.secondary.Save(ctx, token, shopDomain); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to mirror oauth state to secondary tier")
		}
	}
	return token, nil
}

// VerifyAndConsume looks the token up (primary tier first), deletes it, and
// checks the bound shop domain. Consumption from one tier also clears the
// other so a mirrored copy can't be replayed.
func (s *TieredStateStore) VerifyAndConsume(ctx context.Context, token, shopDomain string) bool {
	if token == "" || shopDomain == "" {
		return false
	}

	shop, ok := s.primary.Consume(ctx, token)
	if s.secondary != nil {
		if secShop, secOK := s.secondary.Consume(ctx, token); !ok && secOK {
			shop, ok = secShop, true
		}
	}
	if !ok {
		return false
	}
	return shop == shopDomain
}

// SweepExpired drops expired tokens from every tier.
func (s *TieredStateStore) SweepExpired(ctx context.Context) {
	s.primary.Sweep(ctx)
	if s.secondary != nil {
		s.secondary.Sweep(ctx)
	}
}
