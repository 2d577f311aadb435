/*
sweeper.go - Automated status sweep scheduler

PURPOSE:
  Periodically recomputes the status of every fee schedule so that
  schedules cross into LATE as due dates pass, without waiting for the
  next payment to arrive.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Walks every schedule and asks the engine to recompute its status
  - Status transitions observed during a sweep are journaled by the
    engine with the sweeper's actor ID
  - The date used for lateness is injectable for tests

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewStatusSweeper(svc)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - engine/service.go: RecomputeStatus
  - engine/status.go: status derivation rules
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/scolaris/tuition-engine/engine"
)

// SweeperActorID is recorded on journal entries written during sweeps.
const SweeperActorID = "status-sweeper"

// StatusSweeper periodically recomputes schedule statuses.
type StatusSweeper struct {
	Service       *engine.Service
	CheckInterval time.Duration
	Enabled       bool

	// Today provides the date used for lateness checks. Defaults to the
	// current wall-clock day; tests override it.
	Today func() engine.Date

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatusSweeper creates a new sweeper.
func NewStatusSweeper(svc *engine.Service) *StatusSweeper {
	return &StatusSweeper{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Today:         func() engine.Date { return engine.DateOf(time.Now()) },
	}
}

// Start begins the sweeper. Calling Start on a running sweeper is a
// no-op; a stopped sweeper can be started again.
func (sw *StatusSweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}
	if sw.ticker != nil {
		return
	}

	sw.ticker = time.NewTicker(sw.CheckInterval)
	sw.stop = make(chan bool)
	sw.wg.Add(1)

	go sw.run(sw.ticker, sw.stop)

	log.Printf("[Sweeper] Started with check interval: %v", sw.CheckInterval)
}

// Stop stops the sweeper and waits for the current sweep to finish.
// Safe to call more than once.
func (sw *StatusSweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ticker == nil {
		return
	}
	sw.ticker.Stop()
	sw.ticker = nil
	close(sw.stop)
	sw.wg.Wait()
	log.Println("[Sweeper] Stopped")
}

func (sw *StatusSweeper) run(ticker *time.Ticker, stop chan bool) {
	defer sw.wg.Done()

	// Run immediately on start
	sw.Sweep()

	for {
		select {
		case <-ticker.C:
			sw.Sweep()
		case <-stop:
			return
		}
	}
}

// Sweep recomputes the status of every schedule once.
func (sw *StatusSweeper) Sweep() {
	ctx := context.Background()
	today := sw.Today()

	ids, err := sw.Service.ListScheduleIDs(ctx)
	if err != nil {
		log.Printf("[Sweeper] Error listing schedules: %v", err)
		return
	}

	swept := 0
	for _, id := range ids {
		if _, err := sw.Service.RecomputeStatus(ctx, id, today, SweeperActorID); err != nil {
			log.Printf("[Sweeper] Error recomputing %s: %v", id, err)
			continue
		}
		swept++
	}

	log.Printf("[Sweeper] Swept %d schedules for %s", swept, today)
}
