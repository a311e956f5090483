package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/logger"
)

// DefaultInterval is the tick period.
const DefaultInterval = 20 * time.Second

// Run ticks immediately and then every interval until ctx is done. Each
// tick runs on its own goroutine so a slow tick never holds up the next
// one. Run returns once in-flight ticks have finished.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	e.log.Info("engine started", logger.Fields{"interval": interval.String()})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Errors are logged by RunTick; the next tick tries again.
			_, _ = e.RunTick(ctx)
		}()

		select {
		case <-ctx.Done():
			e.log.Info("engine stopped", nil)
			return nil
		case <-ticker.C:
		}
	}
}
