package metadata

import "time"

// RecordingType classifies a recording by content shape.
type RecordingType string

const (
	TypeTV      RecordingType = "tv"
	TypeMovie   RecordingType = "movie"
	TypeSports  RecordingType = "sports"
	TypeUnknown RecordingType = "unknown"
)

// Recording states as reported by the device.
const (
	StatusFinished  = "finished"
	StatusRecording = "recording"
	StatusFailed    = "failed"
	StatusUnknown   = "unknown"
)

// Recording is the normalized record derived from one raw document. Every
// field is best-effort: the resolver fills defaults rather than failing, so
// downstream deduplication sees every discovered id.
type Recording struct {
	// Identity is the stable dedup key: the canonical program id when the
	// document carries one, otherwise a value derived from the cleaned
	// build name. Empty only when the document yields no usable text at all.
	Identity string

	// Device and RecordingID locate the recording on its appliance.
	Device      string
	RecordingID int

	Type        RecordingType
	Series      string
	SeriesID    string
	Season      string // zero-padded, 2 digits
	Episode     string // zero-padded, 2 digits
	Title       string
	Description string
	Genre       string
	Director    string
	Airdate     string
	Date        string

	// EndTime is the absolute end-of-airing timestamp; malformed source
	// values fall back to a fixed default epoch rather than erroring.
	EndTime time.Time

	QualityHeight   int
	DurationSeconds int
	Status          string

	// SeasonEpisode is "SxxEyy", or "" when the document had no usable
	// season/episode data; placement diverts such tv items to the fail tree.
	SeasonEpisode string

	DisplayName string
	BuildPath   string

	// Tags is the sanitized key/value set handed to the external tagger.
	Tags map[string]string

	// Document retains the resolved source document for the flattened
	// listing view.
	Document Value
}

// Finished reports whether the device considers the recording complete.
func (r Recording) Finished() bool { return r.Status == StatusFinished }
