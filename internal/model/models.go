// Package model defines shared data structures for pilotjobs.
package model

import "time"

// Status values recorded per source in Document.Results.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Site describes one career page and how to pick listings out of it.
// It mirrors one entry of the sites YAML file.
type Site struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	BaseURL string `yaml:"base_url,omitempty"` // used to resolve relative links; defaults to URL
	Company string `yaml:"company,omitempty"`  // fixed company when no selector is given

	CardSelector    string `yaml:"card"`
	TitleSelector   string `yaml:"title,omitempty"` // empty: the card itself
	CompanySelector string `yaml:"company_selector,omitempty"`
	LinkSelector    string `yaml:"link,omitempty"`

	Keywords        []string `yaml:"keywords,omitempty"` // title must contain one; empty accepts all
	Tags            []string `yaml:"tags,omitempty"`     // always applied to this site's jobs
	RequireLocation bool     `yaml:"require_location,omitempty"`
}

// Job is a normalised listing scraped from a Site.
// It is rebuilt on every run; its only identity is its normalised title and company (see dedup.Key).
type Job struct {
	Title         string   `json:"title"`
	Company       string   `json:"company"`
	Link          string   `json:"link"`
	Source        string   `json:"source"`
	Sources       []string `json:"sources,omitempty"`
	Tags          []string `json:"tags"`
	LocationMatch bool     `json:"location_match"`
	Summary       string   `json:"summary,omitempty"`
	HoursRequired int      `json:"hours_required,omitempty"`
	DatePosted    string   `json:"date_posted,omitempty"`
	New           bool     `json:"new,omitempty"`
}

// SourceResult is the per-source outcome of a run. Purely observational.
type SourceResult struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// History maps an ISO date (2006-01-02) to the jobs scraped that day.
type History map[string][]Job

// Document is the shape of jobs.json.
type Document struct {
	RunID     string                  `json:"run_id,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
	Today     []Job                   `json:"today"`
	History   History                 `json:"history"`
	Results   map[string]SourceResult `json:"results"`
}

// NewDocument returns an empty document with initialised maps.
func NewDocument() *Document {
	return &Document{
		Today:   []Job{},
		History: History{},
		Results: map[string]SourceResult{},
	}
}
