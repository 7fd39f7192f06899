// Package envcache persists pipeline envelopes in a key-value store,
// keyed by the canonical query. Entries are write-once.
package envcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/db"
	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/querykey"
)

// store is the consumer interface for the envelope cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// Cache stores envelopes under <prefix>envelope:<norm version>:<sha256(canonical key)>.
type Cache struct {
	store      store
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates an envelope cache. ttl <= 0 keeps entries forever.
// cacheTotal is a counter vec with label "result", passed explicitly.
func New(
	s store,
	keyPrefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{
		store:      s,
		keyPrefix:  keyPrefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the envelope stored for a canonical key.
// A missing, undecodable or foreign entry is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) (envelope.Envelope, bool, error) {
	data, err := c.store.Get(ctx, c.storageKey(key))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.inc("miss")
			return envelope.Envelope{}, false, nil
		}
		c.inc("error")
		return envelope.Envelope{}, false, fmt.Errorf("get envelope: %v: %w", err, domain.ErrCacheUnavailable)
	}

	var dto envelopeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		c.logger.Warn("Failed to parse cached envelope", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return envelope.Envelope{}, false, nil
	}
	if dto.Key != key || dto.NormVersion != querykey.NormVersion {
		c.logger.Warn("Cached envelope key mismatch",
			zap.String("key", key),
			zap.String("stored_key", dto.Key),
			zap.String("stored_norm_version", dto.NormVersion),
		)
		c.inc("miss")
		return envelope.Envelope{}, false, nil
	}

	c.inc("hit")
	return fromDTO(dto), true, nil
}

// Put stores env unless an envelope for its key already exists.
// Reports whether this call wrote the entry.
func (c *Cache) Put(ctx context.Context, env envelope.Envelope) (bool, error) {
	if env.Key == "" {
		return false, fmt.Errorf("envelope without key: %w", domain.ErrCacheUnavailable)
	}
	data, err := json.Marshal(toDTO(env))
	if err != nil {
		return false, fmt.Errorf("encode envelope: %w", err)
	}

	stored, err := c.store.SetNX(ctx, c.storageKey(env.Key), data, c.ttl)
	if err != nil {
		c.inc("error")
		return false, fmt.Errorf("put envelope: %v: %w", err, domain.ErrCacheUnavailable)
	}
	if stored {
		c.inc("stored")
	} else {
		c.inc("exists")
	}
	return stored, nil
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) storageKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return c.keyPrefix + "envelope:" + querykey.NormVersion + ":" + hex.EncodeToString(h[:])
}
