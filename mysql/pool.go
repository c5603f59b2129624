package mysql

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gateserver/metrics"
	"gateserver/pool"
	"gateserver/util/log"

	"github.com/benbjohnson/clock"
)

const (
	CHECK_INTERVAL    = 60 * time.Second
	IDLE_THRESHOLD    = 5 * time.Second
	PROBE_TIMEOUT     = 3 * time.Second
	RECONNECT_TIMEOUT = 5 * time.Second
)

type PoolConfig struct {
	Size          int
	CheckInterval time.Duration
	IdleThreshold time.Duration
	Clock         clock.Clock
}

// MysqlPool is a bounded pool of store sessions with a background health
// check: stale sessions are probed, dead ones dropped, and the same number
// reconnected later.
type MysqlPool struct {
	*pool.Pool[Session]

	connect       Connector
	clock         clock.Clock
	idleThreshold int64
	failCount     atomic.Int32

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewMysqlPool(ctx context.Context, connect Connector, cfg PoolConfig) (*MysqlPool, error) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = CHECK_INTERVAL
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = IDLE_THRESHOLD
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	p, err := pool.New(cfg.Size, func() (Session, error) {
		return connect(ctx)
	}, pool.WithClock[Session](cfg.Clock), pool.WithDestroyer(closeSession))
	if err != nil {
		return nil, err
	}

	mp := &MysqlPool{
		Pool:          p,
		connect:       connect,
		clock:         cfg.Clock,
		idleThreshold: int64(cfg.IdleThreshold / time.Second),
		stop:          make(chan struct{}),
	}
	ticker := cfg.Clock.Ticker(cfg.CheckInterval)
	mp.wg.Add(1)
	go mp.checkLoop(ticker)
	return mp, nil
}

func closeSession(s Session) error {
	return s.Close()
}

func (p *MysqlPool) FailCount() int {
	return int(p.failCount.Load())
}

// Close stops the health check, waits for it to finish and closes the pool.
func (p *MysqlPool) Close() {
	p.once.Do(func() {
		close(p.stop)
		p.Pool.Close()
		p.wg.Wait()
	})
}

func (p *MysqlPool) checkLoop(ticker *clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.safeCheck()
		}
	}
}

func (p *MysqlPool) safeCheck() {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf("mysql pool check panic: %v", err)
		}
	}()
	p.checkConnections(context.Background())
}

// checkConnections runs one health-check cycle. It only visits the sessions
// queued when the cycle starts.
func (p *MysqlPool) checkConnections(ctx context.Context) {
	targetCount := p.NumIdle()
	now := p.clock.Now().Unix()

	for processed := 0; processed < targetCount; processed++ {
		con, ok := p.TryAcquire()
		if !ok {
			break
		}
		if now-con.LastUsed >= p.idleThreshold {
			probeCtx, cancel := context.WithTimeout(ctx, PROBE_TIMEOUT)
			err := con.Conn.PingContext(probeCtx)
			cancel()
			if err != nil {
				log.Warnf("mysql keep alive failed: %v", err)
				metrics.MysqlProbeFailures.Inc()
				p.failCount.Add(1)
				p.Discard(con)
				continue
			}
			con.LastUsed = now
		}
		p.Requeue(con)
	}

	for p.failCount.Load() > 0 {
		if !p.reconnect(ctx) {
			break
		}
		p.failCount.Add(-1)
	}
}

func (p *MysqlPool) reconnect(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, RECONNECT_TIMEOUT)
	defer cancel()
	sess, err := p.connect(dialCtx)
	if err != nil {
		log.Warnf("mysql reconnect failed: %v", err)
		return false
	}
	if err := p.Add(sess); err != nil {
		return false
	}
	metrics.MysqlReconnects.Inc()
	log.Infof("mysql connection reconnect success")
	return true
}
