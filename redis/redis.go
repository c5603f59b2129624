package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisClient interface {
	redis.Cmdable
	Close() error
}

type Addr struct {
	Host string
	Port string
}

func (a *Addr) String() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

const (
	CODE_PREFIX    = "code_"
	BREAK_DURATION = 2 * time.Second
)

var (
	ErrCodeNotFound = errors.New("verify code not found or expired")
	ErrNotAlive     = errors.New("redis is not alive")
)

// CodeStore reads the verification codes the verify service writes under
// code_<email>.
type CodeStore struct {
	cli     RedisClient
	isAlive atomic.Bool
}

func InitRedisClient(addr *Addr, password string, db int) *CodeStore {
	cli := redis.NewClient(&redis.Options{
		Addr:        addr.String(),
		Password:    password,
		DB:          db,
		PoolSize:    100,                    // Maximum number of socket connections.
		PoolTimeout: time.Millisecond * 500, // mount of time client waits for connection if all connections are busy before returning an error.
		ReadTimeout: time.Millisecond * 500,
	})
	return NewCodeStore(cli)
}

func NewCodeStore(cli RedisClient) *CodeStore {
	s := &CodeStore{cli: cli}
	s.isAlive.Store(true)
	return s
}

func (s *CodeStore) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}

func (s *CodeStore) IsAlive() bool {
	return s.isAlive.Load()
}

// GetVerifyCode returns the pending code for email, or ErrCodeNotFound.
func (s *CodeStore) GetVerifyCode(ctx context.Context, email string) (string, error) {
	if !s.IsAlive() {
		return "", ErrNotAlive
	}
	code, err := s.cli.Get(ctx, keyForCode(email)).Result()
	if err == redis.Nil {
		return "", ErrCodeNotFound
	}
	if err != nil {
		s.takeABreak()
		return "", err
	}
	return code, nil
}

func (s *CodeStore) Close() error {
	return s.cli.Close()
}

func keyForCode(email string) string {
	return CODE_PREFIX + email
}

func (s *CodeStore) takeABreak() {
	if !s.isAlive.CompareAndSwap(true, false) {
		return
	}
	time.AfterFunc(BREAK_DURATION, func() {
		s.isAlive.Store(true)
	})
}
