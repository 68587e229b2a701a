package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raainshe/animedash/internal/logging"
)

// Poller runs a refresh function once at start and then on every tick until
// stopped. Ticks do not wait for the previous refresh to finish.
type Poller struct {
	name     string
	interval time.Duration
	refresh  func(ctx context.Context)
	logger   *logging.Logger

	cancel       context.CancelFunc
	inflight     sync.WaitGroup
	done         chan struct{}
	isRunning    bool
	runningMutex sync.Mutex
}

// NewPoller creates a poller that calls refresh every interval
func NewPoller(name string, interval time.Duration, refresh func(ctx context.Context), logger *logging.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		refresh:  refresh,
		logger:   logger,
	}
}

// Start launches the first refresh immediately and the ticker loop
func (p *Poller) Start(ctx context.Context) error {
	p.runningMutex.Lock()
	defer p.runningMutex.Unlock()

	if p.isRunning {
		return fmt.Errorf("%s poller is already running", p.name)
	}
	if p.interval <= 0 {
		return fmt.Errorf("%s poller interval must be positive, got %s", p.name, p.interval)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.isRunning = true

	p.spawn(loopCtx)
	go p.loop(loopCtx)

	p.logger.WithFields(map[string]interface{}{
		"poller":   p.name,
		"interval": p.interval,
	}).Info("Poller started")

	return nil
}

// Stop cancels in-flight refreshes and waits for them to return
func (p *Poller) Stop() {
	p.runningMutex.Lock()
	defer p.runningMutex.Unlock()

	if !p.isRunning {
		return
	}

	p.cancel()
	<-p.done
	p.inflight.Wait()
	p.isRunning = false

	p.logger.WithField("poller", p.name).Info("Poller stopped")
}

// IsRunning reports whether the poller has been started and not stopped
func (p *Poller) IsRunning() bool {
	p.runningMutex.Lock()
	defer p.runningMutex.Unlock()
	return p.isRunning
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

func (p *Poller) spawn(ctx context.Context) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.refresh(ctx)
	}()
}
