package main

import (
	"time"

	"github.com/spf13/cobra"

	"tablotogo/internal/config"
	"tablotogo/internal/selector"
)

// filterFlags are the selection flags shared by run, list, and complete.
type filterFlags struct {
	tvOnly        bool
	moviesOnly    bool
	sportsOnly    bool
	ignoreHistory bool
	invert        bool
	delay         int
	minDuration   int
	minQuality    int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.tvOnly, "tv", false, "Only consider TV episodes")
	cmd.Flags().BoolVar(&f.moviesOnly, "movies", false, "Only consider movies and manual recordings")
	cmd.Flags().BoolVar(&f.sportsOnly, "sports", false, "Only consider sports events")
	cmd.Flags().BoolVar(&f.ignoreHistory, "ignore-history", false, "Consider recordings already in the history file")
	cmd.Flags().BoolVar(&f.invert, "not", false, "Invert the search selection")
	cmd.Flags().IntVar(&f.delay, "delay", -1, "Settling window in seconds (overrides config)")
	cmd.Flags().IntVar(&f.minDuration, "min-duration", -1, "Minimum recording length in seconds (overrides config)")
	cmd.Flags().IntVar(&f.minQuality, "min-quality", -1, "Minimum vertical resolution (overrides config)")
}

// build merges config defaults, flag overrides, and the free search
// arguments into selector filters.
func (f *filterFlags) build(cfg *config.Config, args []string) (selector.Filters, error) {
	filters, err := selector.ParseSearch(args)
	if err != nil {
		return filters, err
	}
	filters.TVOnly = f.tvOnly
	filters.MoviesOnly = f.moviesOnly
	filters.SportsOnly = f.sportsOnly
	filters.IgnoreHistory = f.ignoreHistory
	filters.Invert = f.invert

	delay := cfg.Filters.DelaySeconds
	if f.delay >= 0 {
		delay = f.delay
	}
	filters.Delay = time.Duration(delay) * time.Second

	filters.MinDuration = cfg.Filters.MinDuration
	if f.minDuration >= 0 {
		filters.MinDuration = f.minDuration
	}
	filters.MinQuality = cfg.Filters.MinQuality
	if f.minQuality >= 0 {
		filters.MinQuality = f.minQuality
	}
	return filters, nil
}
