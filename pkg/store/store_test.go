package store

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/coinstack/pkg/errors"
)

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewNullStore()
	defer s.Close()

	require.NoError(t, s.Set(ctx, "key", []byte("value")))
	data, ok, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok, "NullStore should not keep data")
	assert.Nil(t, data)
	assert.NoError(t, s.Delete(ctx, "key"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	buf := []byte(`[1]`)
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	data, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1]`, string(data), "Set should copy")

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte(`[{"asset_id":"bitcoin","quantity":1}]`)
	require.NoError(t, s.Set(ctx, DefaultKey, payload))
	assert.FileExists(t, s.Path(DefaultKey))

	data, ok, err := s.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(data))

	// Non-JSON payloads survive the envelope too.
	require.NoError(t, s.Set(ctx, "plain", []byte("not json")))
	data, _, err = s.Get(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, `"not json"`, string(data))

	require.NoError(t, s.Delete(ctx, DefaultKey))
	require.NoError(t, s.Delete(ctx, DefaultKey), "deleting a missing key is fine")
	_, ok, _ = s.Get(ctx, DefaultKey)
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temporary files must be cleaned up")
	}
}

func TestFileStoreRawFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	raw := `[{"asset_id":"solana","quantity":3}]`
	require.NoError(t, os.WriteFile(s.Path("k"), []byte(raw), 0o644))

	data, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, raw, string(data))
}

func TestNewFileStoreEmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Equal(t, BackendNone, Name(s))

	s, err = Open(ctx, Options{Path: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, BackendFile, Name(s))

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))

	_, err = Open(ctx, Options{Backend: BackendMongo, MongoURI: "not-a-uri"})
	assert.True(t, errors.Is(err, errors.ErrCodeStoreUnavailable))

	assert.Equal(t, "memory", Name(NewMemoryStore()))
}

func TestRedisUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeStoreUnavailable))
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	assert.Equal(t, h1, Hash([]byte("hello")))
	assert.NotEqual(t, h1, Hash([]byte("world")))
	assert.Len(t, h1, 64)
}

func TestRetryWithBackoff(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	ctx := context.Background()
	boom := stderrors.New("boom")

	t.Run("retries retryable errors", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return Retryable(boom)
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return Retryable(boom)
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := RetryWithBackoff(cctx, func() error { return Retryable(boom) })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.True(t, IsRetryable(classify(context.DeadlineExceeded)))
	assert.False(t, IsRetryable(classify(context.Canceled)))
	assert.False(t, IsRetryable(classify(stderrors.New("permanent"))))
	assert.Nil(t, Retryable(nil))
}
