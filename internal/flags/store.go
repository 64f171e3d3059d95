package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	indexKey    = "chattrade:flags"
	valuePrefix = "chattrade:flag:"
)

var keyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,127}$`)

// Store keeps runtime switches in Redis so every process sees a toggle
// without a restart.
type Store struct {
	client redis.Cmdable
	logger *logrus.Logger
}

func NewStore(client redis.Cmdable, logger *logrus.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{client: client, logger: logger}, nil
}

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, key string, value bool) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	flag := &Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(flag)
	if err != nil {
		return nil, fmt.Errorf("marshal flag: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, valuePrefix+key, b, 0)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("upsert flag %s: %w", key, err)
	}

	s.logger.WithFields(logrus.Fields{"flag": key, "value": value}).Info("flag updated")
	return flag, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, valuePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flag %s: %w", key, err)
	}
	return decode(raw)
}

// Enabled reports the stored value of key, falling back to def when the
// switch is unset or Redis cannot be reached.
func (s *Store) Enabled(ctx context.Context, key string, def bool) bool {
	f, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return f.Value
	case errors.Is(err, ErrNotFound):
		return def
	default:
		s.logger.WithField("flag", key).WithError(err).Warn("flag lookup failed, using default")
		return def
	}
}

// List returns stored flags sorted by key, followed by any default that
// was never written.
func (s *Store) List(ctx context.Context) ([]*Flag, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list flags index: %w", err)
	}

	out := make([]*Flag, 0, len(keys)+len(Defaults))
	seen := make(map[string]bool, len(keys))

	valid := keys[:0]
	for _, k := range keys {
		if ValidateKey(k) == nil {
			valid = append(valid, k)
		}
	}
	if len(valid) > 0 {
		redisKeys := make([]string, len(valid))
		for i, k := range valid {
			redisKeys[i] = valuePrefix + k
		}
		vals, err := s.client.MGet(ctx, redisKeys...).Result()
		if err != nil {
			return nil, fmt.Errorf("mget flags: %w", err)
		}
		for _, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			f, err := decode([]byte(str))
			if err != nil {
				continue
			}
			seen[f.Key] = true
			out = append(out, f)
		}
	}

	for k, v := range Defaults {
		if !seen[k] {
			out = append(out, &Flag{Key: k, Value: v})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, valuePrefix+key)
	pipe.SRem(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete flag %s: %w", key, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}

	s.logger.WithField("flag", key).Info("flag deleted")
	return nil
}

func decode(raw []byte) (*Flag, error) {
	var f Flag
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal flag: %w", err)
	}
	return &f, nil
}
