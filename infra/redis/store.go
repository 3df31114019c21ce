// Package redis provides a Redis-backed ledger.CDRStore so charge detail
// records survive restarts and can be shared between dispatcher instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kilianp07/roamnet/core/factory"
	"github.com/kilianp07/roamnet/core/ledger"
	"github.com/kilianp07/roamnet/core/model"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	// DefaultPrefix namespaces CDR keys.
	DefaultPrefix = "roamnet:cdr:"
)

// Config holds the connection settings of the store.
type Config struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	Prefix     string `json:"prefix"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func init() {
	_ = ledger.RegisterCDRStore("redis", func(conf map[string]any) (ledger.CDRStore, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return Open(c)
	})
}

// NewClient returns a configured go-redis client and validates the
// connection with PING.
func NewClient(cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// CDRStore keeps one JSON document per session id. Records expire after
// the configured TTL; zero keeps them forever.
type CDRStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ ledger.CDRStore = (*CDRStore)(nil)

// Open connects and returns a store.
func Open(cfg Config) (*CDRStore, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis cdr store: %w", err)
	}
	return NewCDRStore(client, cfg.Prefix, time.Duration(cfg.TTLSeconds)*time.Second), nil
}

// NewCDRStore wraps an existing client.
func NewCDRStore(client *goredis.Client, prefix string, ttl time.Duration) *CDRStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CDRStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *CDRStore) key(id model.SessionID) string { return s.prefix + string(id) }

// Put stores cdr inside MULTI/EXEC together with a GET of the previous
// value, so replaced is exact under concurrent writers.
func (s *CDRStore) Put(ctx context.Context, cdr model.ChargeDetailRecord) (bool, error) {
	data, err := json.Marshal(cdr)
	if err != nil {
		return false, err
	}
	var prev *goredis.StringCmd
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		prev = p.Get(ctx, s.key(cdr.SessionID))
		p.Set(ctx, s.key(cdr.SessionID), data, s.ttl)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return false, err
	}
	return prev.Err() == nil, nil
}

// Get returns the record of the session, if any.
func (s *CDRStore) Get(ctx context.Context, id model.SessionID) (model.ChargeDetailRecord, bool, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.ChargeDetailRecord{}, false, nil
	}
	if err != nil {
		return model.ChargeDetailRecord{}, false, err
	}
	var cdr model.ChargeDetailRecord
	if err := json.Unmarshal(raw, &cdr); err != nil {
		return model.ChargeDetailRecord{}, false, err
	}
	return cdr, true, nil
}

// Len counts the stored records by scanning the key prefix.
func (s *CDRStore) Len(ctx context.Context) (int, error) {
	n := 0
	it := s.client.Scan(ctx, 0, s.prefix+"*", 256).Iterator()
	for it.Next(ctx) {
		n++
	}
	return n, it.Err()
}

// Delete removes the record of a session.
func (s *CDRStore) Delete(ctx context.Context, id model.SessionID) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Close closes the client.
func (s *CDRStore) Close() error { return s.client.Close() }
