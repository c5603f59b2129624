package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	err    error
	keys   []string
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Close() error {
	return nil
}

func TestGetVerifyCode(t *testing.T) {
	f := &fakeRedis{values: map[string]string{"code_alice@example.com": "1234"}}
	s := NewCodeStore(f)

	code, err := s.GetVerifyCode(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1234", code)
	assert.Equal(t, []string{"code_alice@example.com"}, f.keys)

	_, err = s.GetVerifyCode(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, ErrCodeNotFound)
	assert.True(t, s.IsAlive())
}

func TestGetVerifyCodeErrorTakesABreak(t *testing.T) {
	f := &fakeRedis{err: errors.New("i/o timeout")}
	s := NewCodeStore(f)

	_, err := s.GetVerifyCode(context.Background(), "alice@example.com")
	assert.Error(t, err)
	assert.False(t, s.IsAlive())

	_, err = s.GetVerifyCode(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrNotAlive)
	assert.Len(t, f.keys, 1)
}
