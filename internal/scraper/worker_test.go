package scraper_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pilotjobs/internal/model"
	"pilotjobs/internal/render"
	"pilotjobs/internal/scraper"
	"pilotjobs/internal/store"
)

const boutiquePage = `<html><body>
<a href="/careers/pc12">PC-12 Captain - Phoenix, AZ</a>
<a href="/careers/fa">Flight Attendant</a>
<a href="/careers/fo">First Officer (Part 135)</a>
<a href="/about">About us</a>
</body></html>`

const boardPage = `<html><body><table>
<tr><td><a href="/j/1">PC-12 Captain - Phoenix, AZ</a></td></tr>
<tr><td><a href="/j/2">Caravan Pilot, Dallas TX</a></td></tr>
</table></body></html>`

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/boutique", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(boutiquePage)) })
	mux.HandleFunc("/board", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(boardPage)) })
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testSites(base string) []model.Site {
	return []model.Site{
		{Name: "Boutique Air", URL: base + "/boutique", Company: "Boutique Air", CardSelector: "a", Keywords: []string{"Pilot", "Captain", "First Officer"}},
		{Name: "Board", URL: base + "/board", Company: "Boutique Air", CardSelector: "tr", TitleSelector: "a[href]", Tags: []string{"Aggregator"}},
		{Name: "Down Air", URL: base + "/down", Company: "Down Air", CardSelector: "a"},
	}
}

type recordingNotifier struct{ got []model.Job }

func (n *recordingNotifier) NotifyNew(_ context.Context, jobs []model.Job) error {
	n.got = jobs
	return nil
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, *model.Document) error {
	p.calls++
	return errors.New("redis down")
}

type memArchive struct {
	days   map[string]int
	pruned time.Time
}

func (a *memArchive) Archive(_ context.Context, _ string, day string, jobs []model.Job) (int, error) {
	if a.days == nil {
		a.days = map[string]int{}
	}
	a.days[day] += len(jobs)
	return len(jobs), nil
}

func (a *memArchive) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	a.pruned = cutoff
	return 0, nil
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// ── Collect ────────────────────────────────────────────────────────────────

func TestCollect_FiltersTagsAndRecordsResults(t *testing.T) {
	server := newSiteServer(t)
	w := scraper.NewWorker(
		scraper.NewFetcher(5*time.Second, "", ""),
		store.New(t.TempDir(), 30),
		testSites(server.URL),
		scraper.WithSourceDelay(0),
		scraper.WithRedFlags([]string{"Flight Attendant"}),
	)

	jobs, results := w.Collect(context.Background())

	require.Len(t, jobs, 4)
	assert.Equal(t, "PC-12 Captain - Phoenix, AZ", jobs[0].Title)
	assert.True(t, jobs[0].LocationMatch)
	assert.Contains(t, jobs[0].Tags, "PC-12")
	assert.Contains(t, jobs[0].Tags, "Captain")
	assert.Equal(t, server.URL+"/careers/pc12", jobs[0].Link)

	assert.Equal(t, "First Officer (Part 135)", jobs[1].Title)
	assert.Contains(t, jobs[1].Tags, "Part 135")

	assert.Contains(t, jobs[3].Tags, "Aggregator")
	assert.False(t, jobs[3].LocationMatch)

	assert.Equal(t, model.SourceResult{Status: model.StatusSuccess, Count: 2}, results["Boutique Air"])
	assert.Equal(t, model.SourceResult{Status: model.StatusSuccess, Count: 2}, results["Board"])
	assert.Equal(t, model.StatusFail, results["Down Air"].Status)
	assert.Contains(t, results["Down Air"].Message, "503")
}

func TestCollect_RequireLocation(t *testing.T) {
	server := newSiteServer(t)
	sites := testSites(server.URL)[1:2]
	sites[0].RequireLocation = true

	w := scraper.NewWorker(scraper.NewFetcher(5*time.Second, "", ""), store.New(t.TempDir(), 30), sites, scraper.WithSourceDelay(0))
	jobs, _ := w.Collect(context.Background())

	require.Len(t, jobs, 1)
	assert.Equal(t, "PC-12 Captain - Phoenix, AZ", jobs[0].Title)
}

func TestCollect_CancelledContextFailsRemainingSources(t *testing.T) {
	server := newSiteServer(t)
	w := scraper.NewWorker(scraper.NewFetcher(5*time.Second, "", ""), store.New(t.TempDir(), 30), testSites(server.URL),
		scraper.WithSourceDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs, results := w.Collect(ctx)

	assert.Empty(t, jobs)
	require.Len(t, results, 3)
	for name, r := range results {
		assert.Equal(t, model.StatusFail, r.Status, name)
	}
}

func TestCollect_RedFlagsIgnoreCardSummary(t *testing.T) {
	const page = `<html><body><table>
<tr><td><a href="/j/1">Caravan Pilot</a></td><td>Also hiring: A&amp;P Mechanic, see /jobs/mechanic</td></tr>
<tr><td><a href="/j/2">Line Mechanic</a></td></tr>
</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(page)) }))
	t.Cleanup(srv.Close)

	site := model.Site{Name: "Board", URL: srv.URL, Company: "Ameriflight", CardSelector: "tr", TitleSelector: "a[href]"}
	w := scraper.NewWorker(scraper.NewFetcher(5*time.Second, "", ""), store.New(t.TempDir(), 30), []model.Site{site},
		scraper.WithSourceDelay(0), scraper.WithRedFlags([]string{"Mechanic"}))

	jobs, results := w.Collect(context.Background())

	require.Len(t, jobs, 1)
	assert.Equal(t, "Caravan Pilot", jobs[0].Title)
	assert.Contains(t, jobs[0].Summary, "Mechanic")
	assert.Equal(t, 1, results["Board"].Count)
}

func TestCollect_SpacesConsecutiveSources(t *testing.T) {
	const gap = 50 * time.Millisecond

	var mu sync.Mutex
	var hits []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.Write([]byte(boutiquePage))
	}))
	t.Cleanup(srv.Close)

	var sites []model.Site
	for _, name := range []string{"One", "Two", "Three"} {
		sites = append(sites, model.Site{Name: name, URL: srv.URL + "/" + name, Company: name, CardSelector: "a"})
	}
	w := scraper.NewWorker(scraper.NewFetcher(5*time.Second, "", ""), store.New(t.TempDir(), 30), sites,
		scraper.WithSourceDelay(gap))

	start := time.Now()
	_, results := w.Collect(context.Background())

	for name, r := range results {
		require.Equal(t, model.StatusSuccess, r.Status, name)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 3)
	assert.Less(t, hits[0].Sub(start), gap, "first source is fetched without waiting")
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i].Sub(hits[i-1]), gap-10*time.Millisecond, "gap before source %d", i)
	}
}

// ── Run ────────────────────────────────────────────────────────────────────

func TestRun_PersistsDedupsAndRenders(t *testing.T) {
	server := newSiteServer(t)
	dir := t.TempDir()
	st := store.New(dir, 30)
	now := time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)

	// yesterday already had the PC-12 job; a 60-day-old entry must be trimmed
	prior := model.NewDocument()
	prior.History["2026-10-18"] = []model.Job{{Title: "PC-12 Captain - Phoenix, AZ", Company: "Boutique Air"}}
	prior.History["2026-08-20"] = []model.Job{{Title: "Old", Company: "Gone"}}
	raw, err := json.Marshal(prior)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.DocumentFile), raw, 0o644))

	notifier := &recordingNotifier{}
	publisher := &failingPublisher{}
	archive := &memArchive{}
	w := scraper.NewWorker(
		scraper.NewFetcher(5*time.Second, "", ""),
		st,
		testSites(server.URL),
		scraper.WithSourceDelay(0),
		scraper.WithRedFlags([]string{"Flight Attendant"}),
		scraper.WithClock(fixedClock(now)),
		scraper.WithNotifier(notifier),
		scraper.WithPublisher(publisher),
		scraper.WithArchiver(archive),
	)

	doc, err := w.Run(context.Background())
	require.NoError(t, err)

	// Boutique's PC-12 listing and the board's copy share a key
	require.Len(t, doc.Today, 3)
	pc12 := doc.Today[0]
	assert.Equal(t, []string{"Boutique Air", "Board"}, pc12.Sources)
	assert.Contains(t, pc12.Tags, "Aggregator")
	assert.False(t, pc12.New, "seen yesterday")
	assert.True(t, doc.Today[1].New)

	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, now, doc.UpdatedAt)
	assert.Contains(t, doc.History, "2026-10-19")
	assert.Contains(t, doc.History, "2026-10-18")
	assert.NotContains(t, doc.History, "2026-08-20")

	for _, name := range []string{store.DocumentFile, store.HistoryFile, store.TodayFile, render.IndexFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	reloaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, doc.Today, reloaded.Today)

	assert.Equal(t, doc.Today, notifier.got)
	assert.Equal(t, 1, publisher.calls, "publisher failure does not fail the run")
	assert.Equal(t, 3, archive.days["2026-10-19"])
	assert.Equal(t, store.Cutoff(now, 30), archive.pruned)
}

func TestRun_MalformedDocumentStartsFresh(t *testing.T) {
	server := newSiteServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.DocumentFile), []byte("{broken"), 0o644))

	w := scraper.NewWorker(scraper.NewFetcher(5*time.Second, "", ""), store.New(dir, 30), testSites(server.URL)[:1],
		scraper.WithSourceDelay(0), scraper.WithClock(fixedClock(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))))

	doc, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.History, 1)
	for _, j := range doc.Today {
		assert.True(t, j.New)
	}
}

func TestRun_CancelledKeepsPreviousOutput(t *testing.T) {
	server := newSiteServer(t)
	dir := t.TempDir()
	st := store.New(dir, 30)
	now := time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)

	archive := &memArchive{}
	w := scraper.NewWorker(scraper.NewFetcher(5*time.Second, "", ""), st, testSites(server.URL),
		scraper.WithSourceDelay(0), scraper.WithClock(fixedClock(now)), scraper.WithArchiver(archive))

	first, err := w.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Today, 3)
	index, err := os.ReadFile(filepath.Join(dir, render.IndexFile))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, err := w.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, doc)

	reloaded, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, first.RunID, reloaded.RunID)
	assert.Equal(t, first.Today, reloaded.Today)
	assert.Equal(t, first.History["2026-10-19"], reloaded.History["2026-10-19"])
	assert.Equal(t, first.Results, reloaded.Results)

	after, err := os.ReadFile(filepath.Join(dir, render.IndexFile))
	require.NoError(t, err)
	assert.Equal(t, index, after, "index.html is not re-rendered")
	assert.Equal(t, 3, archive.days["2026-10-19"], "sinks are not fed by the cancelled run")
}
