package scraper

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"pilotjobs/internal/classify"
	"pilotjobs/internal/dedup"
	"pilotjobs/internal/model"
	"pilotjobs/internal/render"
	"pilotjobs/internal/store"
)

// PageFetcher returns the raw body of a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Archiver keeps a durable copy of each day's jobs.
type Archiver interface {
	Archive(ctx context.Context, runID, day string, jobs []model.Job) (int, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher announces a finished run.
type Publisher interface {
	Publish(ctx context.Context, doc *model.Document) error
}

// Notifier is told about jobs that were not seen the previous day.
type Notifier interface {
	NotifyNew(ctx context.Context, jobs []model.Job) error
}

// Option configures a Worker.
type Option func(*Worker)

// WithRedFlags discards listings containing any of flags.
func WithRedFlags(flags []string) Option { return func(w *Worker) { w.redFlags = flags } }

// WithSourceDelay spaces consecutive sources by d. Zero disables the delay.
func WithSourceDelay(d time.Duration) Option {
	return func(w *Worker) {
		if d <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithArchiver mirrors every run into a.
func WithArchiver(a Archiver) Option { return func(w *Worker) { w.archiver = a } }

// WithPublisher announces every run through p.
func WithPublisher(p Publisher) Option { return func(w *Worker) { w.publisher = p } }

// WithNotifier reports new jobs through n.
func WithNotifier(n Notifier) Option { return func(w *Worker) { w.notifier = n } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(w *Worker) { w.now = now } }

// Worker runs the full scrape cycle: fetch every site in turn, extract,
// filter and tag listings, deduplicate, persist and render.
type Worker struct {
	fetcher   PageFetcher
	store     *store.Store
	sites     []model.Site
	redFlags  []string
	limiter   *rate.Limiter
	archiver  Archiver
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

// NewWorker constructs a Worker. Sources are one second apart unless
// WithSourceDelay says otherwise.
func NewWorker(fetcher PageFetcher, st *store.Store, sites []model.Site, opts ...Option) *Worker {
	w := &Worker{
		fetcher: fetcher,
		store:   st,
		sites:   sites,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes one scrape cycle and returns the saved document.
// Per-source failures are recorded in the results and never fail the run;
// failing to write the output files does. A run whose ctx is cancelled
// before collection finishes writes nothing and leaves the previous output
// in place.
func (w *Worker) Run(ctx context.Context) (*model.Document, error) {
	now := w.now().UTC().Round(0)
	today := now.Format(store.DateLayout)
	runID := uuid.NewString()
	log.Printf("[worker] Run %s started for %d site(s)", runID, len(w.sites))

	doc, err := w.store.Load()
	if err != nil {
		log.Printf("[worker] Could not load previous results: %v — starting fresh", err)
		doc = model.NewDocument()
	}

	jobs, results := w.Collect(ctx)
	if err := ctx.Err(); err != nil {
		log.Printf("[worker] Run %s interrupted after collecting %d job(s) — keeping previous output", runID, len(jobs))
		return nil, fmt.Errorf("run cancelled: %w", err)
	}
	jobs = dedup.Dedup(jobs)
	_, prev, _ := store.PreviousDay(doc.History, today)
	jobs = dedup.MarkNew(jobs, prev)

	doc.RunID = runID
	doc.UpdatedAt = now
	doc.Today = jobs
	doc.History[today] = jobs
	doc.Results = results

	if err := w.store.Save(doc, now); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	if err := render.WriteFile(w.store.Path(render.IndexFile), doc); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	w.fanOut(ctx, doc, today)

	log.Printf("[worker] Run %s done — jobs=%d new=%d sources=%d", runID, len(jobs), countNew(jobs), len(results))
	return doc, nil
}

// Collect scrapes every site in order and returns the kept listings plus a
// result per site.
func (w *Worker) Collect(ctx context.Context) ([]model.Job, map[string]model.SourceResult) {
	var all []model.Job
	results := make(map[string]model.SourceResult, len(w.sites))

	for _, site := range w.sites {
		if err := w.limiter.Wait(ctx); err != nil {
			results[site.Name] = model.SourceResult{Status: model.StatusFail, Message: err.Error()}
			continue
		}

		jobs, err := w.scrapeSite(ctx, site)
		if err != nil {
			log.Printf("[worker] Error scraping %s: %v — continuing", site.Name, err)
			results[site.Name] = model.SourceResult{Status: model.StatusFail, Message: err.Error()}
			continue
		}

		slog.Info("source scraped", "source", site.Name, "count", len(jobs))
		results[site.Name] = model.SourceResult{Status: model.StatusSuccess, Count: len(jobs)}
		all = append(all, jobs...)
	}
	return all, results
}

func (w *Worker) scrapeSite(ctx context.Context, site model.Site) ([]model.Job, error) {
	page, err := w.fetcher.Fetch(ctx, site.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	candidates, err := Extract(page, site)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	kept := make([]model.Job, 0, len(candidates))
	flagged := 0
	for _, job := range candidates {
		switch Screen(job.Title, job.Company, site.Keywords, w.redFlags) {
		case NoKeyword:
			continue
		case RedFlag:
			flagged++
			continue
		}

		text := job.Title + " " + job.Company + " " + job.Summary
		job.LocationMatch = classify.LocationMatch(text)
		if site.RequireLocation && !job.LocationMatch {
			continue
		}
		job.Tags = append(append([]string{}, site.Tags...), classify.Tags(text)...)
		job.HoursRequired = classify.HoursRequired(text)
		job.Sources = []string{site.Name}
		kept = append(kept, job)
	}
	if flagged > 0 {
		slog.Info("red-flagged listings dropped", "source", site.Name, "count", flagged)
	}
	return kept, nil
}

// fanOut feeds the optional sinks. Their failures are logged only.
func (w *Worker) fanOut(ctx context.Context, doc *model.Document, today string) {
	if w.archiver != nil {
		n, err := w.archiver.Archive(ctx, doc.RunID, today, doc.Today)
		if err != nil {
			slog.Warn("archive failed", "run", doc.RunID, "err", err)
		} else {
			slog.Info("archived jobs", "run", doc.RunID, "inserted", n)
		}
		if _, err := w.archiver.Prune(ctx, store.Cutoff(doc.UpdatedAt, w.store.RetentionDays())); err != nil {
			slog.Warn("archive prune failed", "err", err)
		}
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, doc); err != nil {
			slog.Warn("publish failed", "run", doc.RunID, "err", err)
		}
	}

	if w.notifier != nil {
		if err := w.notifier.NotifyNew(ctx, doc.Today); err != nil {
			slog.Warn("notify failed", "run", doc.RunID, "err", err)
		}
	}
}

func countNew(jobs []model.Job) int {
	n := 0
	for _, j := range jobs {
		if j.New {
			n++
		}
	}
	return n
}
