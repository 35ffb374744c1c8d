package jobs

import (
	"context"
	"log"
	"time"

	"labadmin/internal/config"
	"labadmin/internal/db"
)

// StartAgendaSweepJob periodically deletes one-off meeting bookings whose
// date passed without a manager confirming them, so stale pending bookings
// stop blocking the room.
func StartAgendaSweepJob(ctx context.Context, cfg config.Config, store *db.Store) {
	if !cfg.AgendaSweepEnabled {
		return
	}
	interval := cfg.AgendaSweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.AgendaSweepTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UTC()
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				deleted, err := store.Queries.DeleteExpiredUnconfirmedAgendas(tickCtx, now)
				cancel()
				if err != nil {
					log.Printf("agenda sweep error: %v", err)
					continue
				}
				if deleted > 0 {
					log.Printf("agenda sweep removed %d expired bookings", deleted)
				}
			}
		}
	}()
}
