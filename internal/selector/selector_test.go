package selector

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"tablotogo/internal/history"
	"tablotogo/internal/metadata"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func finishedRecording(id, name string) metadata.Recording {
	return metadata.Recording{
		Identity:    id,
		Type:        metadata.TypeTV,
		Status:      metadata.StatusFinished,
		DisplayName: name,
		BuildPath:   name,
		Genre:       "Drama",
		EndTime:     now.Add(-48 * time.Hour),
	}
}

func newSelector(t *testing.T, f Filters) *Selector {
	t.Helper()
	hist := history.Load(filepath.Join(t.TempDir(), "h"), nil, nil)
	return New(f, hist, fixedNow, nil)
}

func TestHardGates(t *testing.T) {
	s := newSelector(t, Filters{Delay: time.Hour, MinDuration: 600, MinQuality: 480})

	rec := finishedRecording("", "No Identity")
	if got := s.Consider(rec); got != NoIdentity {
		t.Errorf("empty identity verdict = %v, want NoIdentity", got)
	}

	rec = finishedRecording("EP1", "Still Recording")
	rec.Status = metadata.StatusRecording
	rec.DurationSeconds, rec.QualityHeight = 1800, 720
	if got := s.Consider(rec); got != NotFinished {
		t.Errorf("recording verdict = %v, want NotFinished", got)
	}

	rec = finishedRecording("EP2", "Too Recent")
	rec.EndTime = now.Add(-time.Minute)
	rec.DurationSeconds, rec.QualityHeight = 1800, 720
	if got := s.Consider(rec); got != TooRecent {
		t.Errorf("recent verdict = %v, want TooRecent", got)
	}

	rec = finishedRecording("EP3", "Short Clip")
	rec.DurationSeconds, rec.QualityHeight = 60, 720
	if got := s.Consider(rec); got != TooShort {
		t.Errorf("short verdict = %v, want TooShort", got)
	}

	rec = finishedRecording("EP4", "Low Quality")
	rec.DurationSeconds, rec.QualityHeight = 1800, 240
	if got := s.Consider(rec); got != TooLowQuality {
		t.Errorf("quality verdict = %v, want TooLowQuality", got)
	}
}

func TestTypeRestriction(t *testing.T) {
	s := newSelector(t, Filters{TVOnly: true})
	movie := finishedRecording("MV1", "Some Movie")
	movie.Type = metadata.TypeMovie
	if got := s.Consider(movie); got != WrongType {
		t.Errorf("movie under --tv verdict = %v, want WrongType", got)
	}
	tv := finishedRecording("EP1", "Some Show")
	if got := s.Consider(tv); got != Selected {
		t.Errorf("tv under --tv verdict = %v, want Selected", got)
	}
}

func TestFirstSeenDedup(t *testing.T) {
	s := newSelector(t, Filters{})
	first := finishedRecording("EP1", "Show - S01E05 - Pilot")
	second := finishedRecording("EP1", "Show - S01E05 - Pilot (rerun)")

	if got := s.Consider(first); got != Selected {
		t.Fatalf("first verdict = %v, want Selected", got)
	}
	if got := s.Consider(second); got != Duplicate {
		t.Errorf("second verdict = %v, want Duplicate", got)
	}
}

func TestDedupOnlyCountsSelections(t *testing.T) {
	re := regexp.MustCompile(`(?i)pilot`)
	s := newSelector(t, Filters{Search: re, SearchTerm: "pilot"})

	miss := finishedRecording("EP1", "Show - S01E06 - Other")
	if got := s.Consider(miss); got != NoMatch {
		t.Fatalf("non-matching verdict = %v, want NoMatch", got)
	}
	// The rejected airing must not shadow a later one that matches.
	hit := finishedRecording("EP1", "Show - S01E05 - Pilot")
	if got := s.Consider(hit); got != Selected {
		t.Errorf("later matching verdict = %v, want Selected", got)
	}
	if got := s.Consider(hit); got != Duplicate {
		t.Errorf("repeat verdict = %v, want Duplicate", got)
	}
}

func TestHistoryExcludesUnlessIgnored(t *testing.T) {
	hist := history.Load(filepath.Join(t.TempDir(), "h"), nil, nil)
	if err := hist.Append("EP1", "Show - Pilot"); err != nil {
		t.Fatal(err)
	}

	s := New(Filters{}, hist, fixedNow, nil)
	if got := s.Consider(finishedRecording("EP1", "Show")); got != InHistory {
		t.Errorf("verdict = %v, want InHistory", got)
	}

	s = New(Filters{IgnoreHistory: true}, hist, fixedNow, nil)
	if got := s.Consider(finishedRecording("EP1", "Show")); got != Selected {
		t.Errorf("verdict with IgnoreHistory = %v, want Selected", got)
	}
}

func TestSearchPredicate(t *testing.T) {
	re := regexp.MustCompile(`(?i)simpsons`)
	s := newSelector(t, Filters{Search: re, SearchTerm: "simpsons"})

	match := finishedRecording("EP1", "The Simpsons - S01E05 - Pilot")
	if got := s.Consider(match); got != Selected {
		t.Errorf("name match verdict = %v, want Selected", got)
	}
	miss := finishedRecording("EP2", "Other Show")
	miss.Genre = "Comedy"
	if got := s.Consider(miss); got != NoMatch {
		t.Errorf("miss verdict = %v, want NoMatch", got)
	}

	genre := finishedRecording("EP3", "Third Show")
	genre.Genre = "Simpsons Marathon"
	if got := s.Consider(genre); got != Selected {
		t.Errorf("genre match verdict = %v, want Selected", got)
	}
}

func TestLiteralIdentityMatch(t *testing.T) {
	re := regexp.MustCompile(`(?i)EP019223320011`)
	s := newSelector(t, Filters{Search: re, SearchTerm: "EP019223320011"})
	rec := finishedRecording("EP019223320011", "Unrelated Name")
	if got := s.Consider(rec); got != Selected {
		t.Errorf("verdict = %v, want Selected for verbatim identity", got)
	}
}

func TestInvertFlipsPredicateNotGates(t *testing.T) {
	re := regexp.MustCompile(`(?i)simpsons`)
	s := newSelector(t, Filters{Search: re, SearchTerm: "simpsons", Invert: true})

	match := finishedRecording("EP1", "The Simpsons")
	if got := s.Consider(match); got != NoMatch {
		t.Errorf("inverted match verdict = %v, want NoMatch", got)
	}
	miss := finishedRecording("EP2", "Other Show")
	if got := s.Consider(miss); got != Selected {
		t.Errorf("inverted miss verdict = %v, want Selected", got)
	}
	unfinished := finishedRecording("EP3", "Another Show")
	unfinished.Status = metadata.StatusFailed
	if got := s.Consider(unfinished); got != NotFinished {
		t.Errorf("inverted unfinished verdict = %v, want NotFinished", got)
	}
}

func TestSortForListing(t *testing.T) {
	recs := []metadata.Recording{
		{BuildPath: "Zeta", Identity: "1"},
		{BuildPath: "Alpha", Identity: "2"},
		{BuildPath: "Alpha", Identity: "1"},
	}
	SortForListing(recs)
	if recs[0].Identity != "1" || recs[0].BuildPath != "Alpha" {
		t.Errorf("first = %+v", recs[0])
	}
	if recs[2].BuildPath != "Zeta" {
		t.Errorf("last = %+v", recs[2])
	}
}

func TestParseSearch(t *testing.T) {
	filters, err := ParseSearch(nil)
	if err != nil {
		t.Fatal(err)
	}
	if filters.Search != nil || filters.SearchTerm != "" {
		t.Errorf("empty terms should match everything: %+v", filters)
	}

	filters, err = ParseSearch([]string{"the", "Simpsons"})
	if err != nil {
		t.Fatal(err)
	}
	if filters.SearchTerm != "the Simpsons" {
		t.Errorf("search term = %q", filters.SearchTerm)
	}
	if !filters.Search.MatchString("THE SIMPSONS - S01E05") {
		t.Error("search should be case-insensitive")
	}

	if _, err := ParseSearch([]string{"("}); err == nil {
		t.Error("expected error for invalid expression")
	}
}
