package devicecache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redisEntry struct {
	value     string
	expiresAt time.Time
}

// fakeRedis implements the two commands the driver issues. Any other call
// panics through the nil embedded client.
type fakeRedis struct {
	redis.UniversalClient

	mu      sync.Mutex
	now     time.Time
	data    map[string]redisEntry
	lastTTL time.Duration
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), data: map[string]redisEntry{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}

	var s string
	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	}
	f.data[key] = redisEntry{value: s, expiresAt: f.now.Add(expiration)}
	f.lastTTL = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) GetDel(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}

	e, ok := f.data[key]
	delete(f.data, key)
	if !ok || !f.now.Before(e.expiresAt) {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(e.value, nil)
}

func (f *fakeRedis) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestRedis_PutTake(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	r := NewRedis(client, 2*time.Minute)
	ctx := context.Background()
	info := Info{UserAgent: "Mozilla/5.0", Platform: "Win32", Screen: "1920x1080", Timezone: "UTC", Language: "en-GB"}

	key, err := r.Put(ctx, info)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.Equal(t, 2*time.Minute, client.lastTTL)
	assert.Contains(t, client.data, redisPrefix+key)

	got, err := r.Take(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	_, err = r.Take(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_Expiry(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	r := NewRedis(client, 0)
	ctx := context.Background()

	key, err := r.Put(ctx, Info{Platform: "old"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, client.lastTTL)

	client.advance(6 * time.Minute)
	_, err = r.Take(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	down := errors.New("connection refused")

	client := newFakeRedis()
	client.err = down
	r := NewRedis(client, time.Minute)

	_, err := r.Put(ctx, Info{})
	assert.ErrorIs(t, err, down)

	_, err = r.Take(ctx, "k")
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrNotFound)

	corrupt := newFakeRedis()
	corrupt.data[redisPrefix+"bad"] = redisEntry{value: "{not json", expiresAt: corrupt.now.Add(time.Minute)}
	_, err = NewRedis(corrupt, time.Minute).Take(ctx, "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
