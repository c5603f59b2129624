package cpu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleEMA(t *testing.T) {
	s := NewSampler(func(ctx context.Context) (int64, error) {
		return 1000, nil
	})
	s.sample(context.Background())
	assert.EqualValues(t, 30, s.Usage())
	s.sample(context.Background())
	assert.InDelta(t, 51, s.Usage(), 1)
}

func TestSampleErrorKeepsValue(t *testing.T) {
	fail := false
	s := NewSampler(func(ctx context.Context) (int64, error) {
		if fail {
			return 0, errors.New("no /proc")
		}
		return 500, nil
	})
	s.sample(context.Background())
	before := s.Usage()
	fail = true
	s.sample(context.Background())
	assert.Equal(t, before, s.Usage())
}

func TestStartStopsOnCancel(t *testing.T) {
	s := NewSampler(func(ctx context.Context) (int64, error) {
		return 800, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	assert.Eventually(t, func() bool { return s.Usage() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop")
	}
}
