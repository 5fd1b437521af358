// pilotjobs scrapes a fixed set of aviation job boards once a day, keeps a
// rolling history of what it found and renders a static page of pilot jobs,
// with a focus on PC-12 and Arizona-based positions.
//
// Commands:
//   - run       one scrape cycle, then exit
//   - render    rebuild index.html from jobs.json without fetching
//   - schedule  run now and then on PILOTJOBS_SCHEDULE until interrupted
//   - serve     serve the output directory and JSON API
//   - sites     print the active site table as YAML
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"pilotjobs/internal/config"
)

var outputDir string

var rootCmd = &cobra.Command{
	Use:           "pilotjobs",
	Short:         "Daily pilot job-board scraper and static page generator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides PILOTJOBS_OUTPUT_DIR)")
	rootCmd.AddCommand(runCmd, renderCmd, scheduleCmd, serveCmd, sitesCmd)
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[pilotjobs] %v", err)
		os.Exit(1)
	}
}
