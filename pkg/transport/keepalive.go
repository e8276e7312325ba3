package transport

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Keep-alive constants.
const (
	// DefaultPingInterval is the default interval between pings.
	DefaultPingInterval = 30 * time.Second

	// DefaultPongTimeout is how long the connection may stay silent after
	// the last pong or message before it is considered dead.
	DefaultPongTimeout = 60 * time.Second
)

// KeepAliveConfig configures keep-alive behavior.
type KeepAliveConfig struct {
	// PingInterval is the interval between pings. Negative disables pings
	// and the read deadline.
	PingInterval time.Duration

	// PongTimeout is the read deadline extension granted by each pong or message.
	PongTimeout time.Duration
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval: DefaultPingInterval,
		PongTimeout:  DefaultPongTimeout,
	}
}

// Enabled reports whether pings are sent.
func (c KeepAliveConfig) Enabled() bool {
	return c.PingInterval > 0
}

// DetectionDelay is the longest time a dead connection can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	if !c.Enabled() {
		return 0
	}
	return c.PingInterval + c.PongTimeout
}

// KeepAliveStats is a snapshot of the ping bookkeeping of a Client.
type KeepAliveStats struct {
	LastPingTime time.Time
	LastPongTime time.Time
	// Latency is the round trip of the most recent answered ping.
	Latency    time.Duration
	CurrentSeq uint32
}

// keepAlive writes pings carrying a decimal sequence number and measures the
// round trip when the matching pong comes back. Sequence numbers start at 1,
// so awaiting == 0 means no ping is outstanding.
type keepAlive struct {
	interval time.Duration
	write    func(payload []byte) error
	seq      atomic.Uint32

	mu       sync.Mutex
	awaiting uint32
	snapshot KeepAliveStats
}

func newKeepAlive(interval time.Duration, write func(payload []byte) error) *keepAlive {
	return &keepAlive{interval: interval, write: write}
}

// run pings every interval until ctx is done or a ping cannot be written.
func (ka *keepAlive) run(ctx context.Context) error {
	ticker := time.NewTicker(ka.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := ka.ping(now); err != nil {
				return err
			}
		}
	}
}

func (ka *keepAlive) ping(now time.Time) error {
	n := ka.seq.Add(1)

	ka.mu.Lock()
	ka.awaiting = n
	ka.snapshot.LastPingTime = now
	ka.mu.Unlock()

	return ka.write(strconv.AppendUint(nil, uint64(n), 10))
}

// pongReceived handles a pong frame. A pong for an older or unknown ping only
// refreshes LastPongTime.
func (ka *keepAlive) pongReceived(appData string) {
	now := time.Now()
	n, err := strconv.ParseUint(appData, 10, 32)

	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.snapshot.LastPongTime = now
	if err == nil && ka.awaiting != 0 && uint32(n) == ka.awaiting {
		ka.snapshot.Latency = now.Sub(ka.snapshot.LastPingTime)
		ka.awaiting = 0
	}
}

func (ka *keepAlive) stats() KeepAliveStats {
	ka.mu.Lock()
	s := ka.snapshot
	ka.mu.Unlock()
	s.CurrentSeq = ka.seq.Load()
	return s
}
