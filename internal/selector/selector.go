// Package selector decides which resolved recordings get queued for
// transfer: hard gates first (finished, settled, type, duration, quality),
// then history membership, first-seen dedup by identity, and the user's
// search predicate with optional inversion.
package selector

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"tablotogo/internal/history"
	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
)

// Filters carries the user's selection criteria for one run.
type Filters struct {
	// Search matches case-insensitively against display name and genre.
	// Nil matches everything.
	Search *regexp.Regexp
	// SearchTerm is the raw search text; a recording whose id or identity
	// equals it verbatim matches regardless of the regex.
	SearchTerm string

	// TVOnly/MoviesOnly/SportsOnly restrict by type; all false means all
	// types pass.
	TVOnly     bool
	MoviesOnly bool
	SportsOnly bool

	// Delay is the settling window: a recording must have ended at least
	// this long ago.
	Delay time.Duration

	MinDuration int
	MinQuality  int

	IgnoreHistory bool
	Invert        bool
}

// ParseSearch builds filters from free-form search arguments. The terms are
// joined with spaces and compiled as a single case-insensitive regular
// expression; no terms means match everything.
func ParseSearch(terms []string) (Filters, error) {
	var filters Filters
	joined := strings.TrimSpace(strings.Join(terms, " "))
	if joined == "" {
		return filters, nil
	}
	re, err := regexp.Compile("(?i)" + joined)
	if err != nil {
		return filters, fmt.Errorf("invalid search expression %q: %w", joined, err)
	}
	filters.Search = re
	filters.SearchTerm = joined
	return filters, nil
}

// Verdict explains what happened to one considered recording.
type Verdict int

const (
	Selected Verdict = iota
	NoIdentity
	NotFinished
	TooRecent
	WrongType
	TooShort
	TooLowQuality
	InHistory
	Duplicate
	NoMatch
)

// Counts aggregates per-device verdicts for the cycle summary.
type Counts struct {
	NewTV      int
	NewMovies  int
	NewSports  int
	Duplicates int
	Queued     int
}

// Selector applies filters across one run, remembering identities it has
// already selected so the same program recorded on two devices (or twice on
// one) transfers at most once.
type Selector struct {
	filters Filters
	history *history.Store
	now     func() time.Time
	seen    map[string]struct{}
	logger  *slog.Logger
}

// New builds a selector for one run.
func New(filters Filters, hist *history.Store, now func() time.Time, logger *slog.Logger) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{
		filters: filters,
		history: hist,
		now:     now,
		seen:    make(map[string]struct{}),
		logger:  logging.NewComponentLogger(logger, "selector"),
	}
}

// Consider evaluates one recording in discovery order and returns its
// verdict. Hard gates apply regardless of inversion; Invert flips only the
// predicate/dedup outcome.
func (s *Selector) Consider(rec metadata.Recording) Verdict {
	if rec.Identity == "" {
		// Never silently merged with another empty-identity item.
		s.logger.Warn("recording yielded no identity, dropping",
			logging.String("device", rec.Device),
			logging.Int("recording_id", rec.RecordingID),
			logging.String("display_name", rec.DisplayName))
		return NoIdentity
	}
	if !rec.Finished() {
		return NotFinished
	}
	if s.now().Sub(rec.EndTime) < s.filters.Delay {
		return TooRecent
	}
	if !s.typeAllowed(rec.Type) {
		return WrongType
	}
	if s.filters.MinDuration > 0 && rec.DurationSeconds < s.filters.MinDuration {
		return TooShort
	}
	if s.filters.MinQuality > 0 && rec.QualityHeight < s.filters.MinQuality {
		return TooLowQuality
	}
	if !s.filters.IgnoreHistory && s.history != nil && s.history.Contains(rec.Identity) {
		return InHistory
	}
	if _, dup := s.seen[rec.Identity]; dup {
		return Duplicate
	}
	if s.predicate(rec) == s.filters.Invert {
		return NoMatch
	}
	// Only selected identities count as seen: a non-matching airing must
	// not shadow a later airing that does match.
	s.seen[rec.Identity] = struct{}{}
	return Selected
}

func (s *Selector) typeAllowed(t metadata.RecordingType) bool {
	switch t {
	case metadata.TypeTV:
		return !s.filters.MoviesOnly && !s.filters.SportsOnly
	case metadata.TypeMovie:
		return !s.filters.TVOnly && !s.filters.SportsOnly
	case metadata.TypeSports:
		return !s.filters.TVOnly && !s.filters.MoviesOnly
	default:
		return !s.filters.TVOnly && !s.filters.MoviesOnly && !s.filters.SportsOnly
	}
}

func (s *Selector) predicate(rec metadata.Recording) bool {
	term := s.filters.SearchTerm
	if term != "" {
		if term == strconv.Itoa(rec.RecordingID) || term == rec.Identity {
			return true
		}
	}
	if s.filters.Search == nil {
		return true
	}
	return s.filters.Search.MatchString(rec.DisplayName) || s.filters.Search.MatchString(rec.Genre)
}

// SortForListing orders recordings for display: lexicographic by sanitized
// build path, then identity. Listing order is deliberately not discovery
// order.
func SortForListing(recs []metadata.Recording) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].BuildPath != recs[j].BuildPath {
			return recs[i].BuildPath < recs[j].BuildPath
		}
		return recs[i].Identity < recs[j].Identity
	})
}
