package claims

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper cancels pending claims nobody acted on within TTL.
type Sweeper struct {
	Repo    *ClaimRepository
	TTL     time.Duration
	Timeout time.Duration
}

// Run performs one sweep.
func (s Sweeper) Run() {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cutoff := s.Repo.Now().Add(-s.TTL)
	n, err := s.Repo.ExpirePending(ctx, cutoff)
	if err != nil {
		log.Printf("[claims] sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[claims] sweep expired %d pending claims older than %s", n, s.TTL)
	}
}

// Register schedules the sweeper on c using a standard cron spec or a
// descriptor such as "@every 15m".
func (s Sweeper) Register(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddJob(spec, cron.FuncJob(s.Run))
}
