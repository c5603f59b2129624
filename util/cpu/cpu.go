package cpu

import (
	"context"
	"sync/atomic"
	"time"

	"gateserver/util/log"

	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	SAMPLE_INTERVAL = 500 * time.Millisecond
	DECAY           = 0.7
)

// Reader returns the instant cpu usage in per mille.
type Reader func(ctx context.Context) (int64, error)

// Sampler keeps an exponential moving average of the process host cpu.
type Sampler struct {
	read  Reader
	usage atomic.Int64
}

func NewSampler(read Reader) *Sampler {
	if read == nil {
		read = ReadStat
	}
	return &Sampler{read: read}
}

func ReadStat(ctx context.Context) (int64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return int64(percents[0] * 10), nil
}

// Usage returns the smoothed usage in percent.
func (s *Sampler) Usage() int64 {
	return s.usage.Load() / 10
}

func (s *Sampler) Start(ctx context.Context) {
	ticker := time.NewTicker(SAMPLE_INTERVAL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

// EMA algorithm: https://blog.csdn.net/m0_38106113/article/details/81542863
func (s *Sampler) sample(ctx context.Context) {
	stat, err := s.read(ctx)
	if err != nil {
		log.Warnf("read cpu stat: %v", err)
		return
	}
	prev := s.usage.Load()
	cur := int64(float64(prev)*DECAY + float64(stat)*(1.0-DECAY))
	s.usage.Store(cur)
}
