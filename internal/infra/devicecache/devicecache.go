// Package devicecache holds browser device metadata between the device-info
// POST and the login that follows it. Entries expire after a short TTL and are
// consumed on first read.
package devicecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mailforge/config"
)

var (
	ErrNotFound      = errors.New("devicecache: entry not found or expired")
	ErrInvalidConfig = errors.New("devicecache: invalid config")
)

// Info is what the browser reports about itself.
type Info struct {
	UserAgent string `json:"userAgent"`
	Platform  string `json:"platform"`
	Screen    string `json:"screen"`
	Timezone  string `json:"timezone"`
	Language  string `json:"language"`
	IP        string `json:"ip,omitempty"`
}

type Store interface {
	// Put stores info and returns the generated key.
	Put(ctx context.Context, info Info) (string, error)
	// Take returns the entry and removes it. Missing or expired keys yield ErrNotFound.
	Take(ctx context.Context, key string) (Info, error)
}

func newKey() string {
	return uuid.NewString()
}

// New picks the driver named in the config.
func New(cfg config.Device) (Store, error) {
	switch cfg.Driver {
	case "memory", "":
		return NewMemory(cfg.TTL), nil
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return NewRedis(redis.NewClient(opt), cfg.TTL), nil
	}
	return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
}
