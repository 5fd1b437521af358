package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pilotjobs/internal/model"
)

// SitesFile is the YAML layout accepted by PILOTJOBS_SITES_FILE.
//
//	red_flags: ["Flight Attendant", "Mechanic"]
//	sites:
//	  - name: Ameriflight
//	    url: https://w3.ameriflight.com/careers/pilots/
//	    card: a.job-title
//	    company: Ameriflight
//	    tags: [Cargo]
type SitesFile struct {
	RedFlags []string     `yaml:"red_flags"`
	Sites    []model.Site `yaml:"sites"`
}

var pilotKeywords = []string{"Pilot", "Captain", "First Officer"}

// DefaultSites returns the built-in site table.
func DefaultSites() []model.Site {
	return []model.Site{
		{
			Name:          "PilotCareerCenter",
			URL:           "https://pilotcareercenter.com/Pilot-Job-Search?c=USA&s=Arizona",
			BaseURL:       "https://pilotcareercenter.com",
			Company:       "PilotCareerCenter",
			CardSelector:  "tr",
			TitleSelector: "a[href]",
			Keywords:      pilotKeywords,
		},
		{
			Name:         "Ameriflight",
			URL:          "https://w3.ameriflight.com/careers/pilots/",
			Company:      "Ameriflight",
			CardSelector: "a.job-title",
			Tags:         []string{"Cargo"},
		},
		{
			Name:         "Cutter Aviation",
			URL:          "https://cutteraviation.com/careers/",
			Company:      "Cutter Aviation",
			CardSelector: "a",
			Keywords:     []string{"Pilot", "Captain"},
		},
		{
			Name:         "Contour Aviation",
			URL:          "https://www.contouraviation.com/careers",
			Company:      "Contour Aviation",
			CardSelector: "a",
			Keywords:     []string{"Pilot", "Captain"},
		},
		{
			Name:         "SkyWest",
			URL:          "https://skywest.com/skywest-airline-jobs/",
			Company:      "SkyWest",
			CardSelector: "a",
			Keywords:     []string{"Pilot", "Captain"},
		},
		{
			Name:         "Boutique Air",
			URL:          "https://www.boutiqueair.com/pages/careers",
			Company:      "Boutique Air",
			CardSelector: "a",
			Keywords:     []string{"Pilot", "Captain"},
		},
	}
}

// DefaultRedFlags returns the built-in exclusion terms.
func DefaultRedFlags() []string {
	return []string{
		"Flight Attendant",
		"Mechanic",
		"Dispatcher",
		"Maintenance Technician",
		"Drone",
		"Simulator Technician",
	}
}

// LoadSitesFile reads and validates a YAML site table.
func LoadSitesFile(path string) (*SitesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file %s: %w", path, err)
	}

	var sf SitesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse sites file %s: %w", path, err)
	}
	if err := ValidateSites(sf.Sites); err != nil {
		return nil, fmt.Errorf("sites file %s: %w", path, err)
	}
	return &sf, nil
}

// ValidateSites checks that every site is usable and names are unique.
func ValidateSites(sites []model.Site) error {
	if len(sites) == 0 {
		return fmt.Errorf("no sites defined")
	}
	seen := make(map[string]bool, len(sites))
	for i, s := range sites {
		switch {
		case s.Name == "":
			return fmt.Errorf("site %d: name is required", i)
		case s.URL == "":
			return fmt.Errorf("site %q: url is required", s.Name)
		case s.CardSelector == "":
			return fmt.Errorf("site %q: card selector is required", s.Name)
		case seen[s.Name]:
			return fmt.Errorf("site %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
