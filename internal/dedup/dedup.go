// Package dedup merges listings that describe the same posting.
//
// Two jobs are the same posting when their normalised (title, company) pair
// matches. Merging keeps the first-seen record and unions tags and sources.
package dedup

import (
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pilotjobs/internal/model"
)

// Normalize lower-cases s, strips diacritics, folds punctuation to spaces
// and collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Key returns the dedup key for a job.
func Key(job model.Job) string {
	return Normalize(job.Title) + "|" + Normalize(job.Company)
}

// Dedup merges jobs sharing a Key. Order of first appearance is preserved
// and the input slice is not modified. Dedup(Dedup(x)) equals Dedup(x).
func Dedup(jobs []model.Job) []model.Job {
	out := make([]model.Job, 0, len(jobs))
	index := make(map[string]int, len(jobs))

	for _, job := range jobs {
		k := Key(job)
		if i, ok := index[k]; ok {
			out[i] = Merge(out[i], job)
			continue
		}
		index[k] = len(out)
		out = append(out, canonical(job))
	}
	return out
}

// Merge folds b into a. Fields of a win; tags and sources are unioned in
// first-seen order.
func Merge(a, b model.Job) model.Job {
	merged := canonical(a)
	merged.Tags = union(merged.Tags, b.Tags...)
	merged.Sources = union(merged.Sources, sourcesOf(b)...)
	merged.LocationMatch = a.LocationMatch || b.LocationMatch
	if merged.HoursRequired == 0 {
		merged.HoursRequired = b.HoursRequired
	}
	if merged.DatePosted == "" {
		merged.DatePosted = b.DatePosted
	}
	if merged.Link == "" {
		merged.Link = b.Link
	}
	return merged
}

// MarkNew sets New on every job whose key is absent from previous.
func MarkNew(jobs, previous []model.Job) []model.Job {
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, p := range previous {
		seen.Add(Key(p))
	}
	for i := range jobs {
		jobs[i].New = !seen.Contains(Key(jobs[i]))
	}
	return jobs
}

// canonical returns a copy of job with freshly allocated, de-duplicated
// tag and source slices.
func canonical(job model.Job) model.Job {
	job.Tags = union(nil, job.Tags...)
	job.Sources = union(nil, sourcesOf(job)...)
	return job
}

func sourcesOf(job model.Job) []string {
	return append([]string{job.Source}, job.Sources...)
}

func union(dst []string, vals ...string) []string {
	out := make([]string, 0, len(dst)+len(vals))
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, v := range append(append([]string(nil), dst...), vals...) {
		if v == "" {
			continue
		}
		if seen.Add(v) {
			out = append(out, v)
		}
	}
	return out
}
