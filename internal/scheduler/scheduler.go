// Package scheduler wires up the cron job that periodically runs the scrape
// cycle.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"pilotjobs/internal/model"
)

// Runner is one scrape cycle; *scraper.Worker satisfies it.
type Runner interface {
	Run(ctx context.Context) (*model.Document, error)
}

// Scheduler wraps robfig/cron and manages the scrape loop.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string // cron spec, e.g. "@daily" or "0 6 * * *"

	// startup tracks the immediate run, which cron's own job waiter does not see.
	startup sync.WaitGroup
}

// New creates a Scheduler firing on spec. Overlapping runs are skipped.
func New(runner Runner, spec string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cron.DefaultLogger),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		runner: runner,
		spec:   spec,
	}, nil
}

// Start registers the job and starts the scheduler. Also runs one scrape
// immediately so the page is fresh without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() {
		s.runScrape(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s, next run: %s", s.spec, s.cron.Entry(id).Next.Format("2006-01-02 15:04 MST"))

	// Run immediately on startup through the same chain (non-blocking)
	job := s.cron.Entry(id).WrappedJob
	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		job.Run()
	}()

	return nil
}

// Stop shuts down the scheduler and waits for a running scrape, scheduled or
// startup, to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.startup.Wait()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runScrape(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Println("[scheduler] Scrape cycle started")

	doc, err := s.runner.Run(ctx)
	if err != nil {
		log.Printf("[scheduler] Scrape cycle failed: %v", err)
		return
	}

	log.Printf("[scheduler] Scrape cycle complete — %d job(s)", len(doc.Today))
}
