package metadata

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tablotogo/internal/logging"
	"tablotogo/internal/naming"
	"tablotogo/internal/textutil"
)

// defaultEndTime stands in for missing or malformed end timestamps so the
// settling-delay gate still has something to compare against.
const defaultEndTime = "2014-01-01T09:00Z"

// entityManual is the entity-type sentinel the device reports for manual
// recordings; they are filed as movies.
const entityManual = "manual"

var genreCaser = cases.Title(language.English)

// probe is one step of a field's resolution chain. Chains run in fixed
// order with later entries overwriting earlier ones when their path is
// present: the more specific content-type shapes are probed last and win.
type probe struct {
	path string
}

func chain(doc Value, def string, probes ...probe) string {
	out := def
	for _, p := range probes {
		if v := doc.Resolve(p.path, Null()); !v.IsNull() {
			out = v.Text(out)
		}
	}
	return out
}

func chainInt(doc Value, def int, probes ...probe) int {
	out := def
	for _, p := range probes {
		if v := doc.Resolve(p.path, Null()); !v.IsNull() {
			out = v.Int(out)
		}
	}
	return out
}

// Resolve derives a normalized Recording from one raw document. It is total:
// any document, including an empty one, yields a best-effort record. Metadata
// defects (malformed timestamps, absent fields) degrade to defaults and are
// logged, never returned as errors.
func Resolve(doc Value, templates naming.Templates, logger *slog.Logger) Recording {
	if logger == nil {
		logger = logging.NewNop()
	}

	end := chain(doc, defaultEndTime,
		probe{"recSportEvent.jsonFromTribune.endTime"},
		probe{"recEpisode.jsonFromTribune.endTime"},
		probe{"recMovieAiring.jsonFromTribune.endTime"},
	)
	entity := chain(doc, entityManual,
		probe{"recSportEvent.jsonFromTribune.program.entityType"},
		probe{"recMovieAiring.jsonFromTribune.program.entityType"},
		probe{"recEpisode.jsonFromTribune.program.entityType"},
	)
	status := chain(doc, StatusUnknown,
		probe{"recManualProgramAiring.jsonForClient.video.state"},
		probe{"recSportEvent.jsonForClient.video.state"},
		probe{"recMovieAiring.jsonForClient.video.state"},
		probe{"recEpisode.jsonForClient.video.state"},
	)
	quality := chainInt(doc, 0,
		probe{"recManualProgramAiring.jsonForClient.video.height"},
		probe{"recSportEvent.jsonForClient.video.height"},
		probe{"recMovieAiring.jsonForClient.video.height"},
		probe{"recEpisode.jsonForClient.video.height"},
	)
	duration := chainInt(doc, 0,
		probe{"recManualProgramAiring.jsonForClient.video.duration"},
		probe{"recSportEvent.jsonForClient.video.duration"},
		probe{"recMovieAiring.jsonForClient.video.duration"},
		probe{"recEpisode.jsonForClient.video.duration"},
	)
	airdate := chain(doc, "",
		probe{"recManualProgramAiring.jsonForClient.airDate"},
		probe{"recSportEvent.jsonForClient.airDate"},
		probe{"recMovieAiring.jsonForClient.airDate"},
		probe{"recMovie.jsonFromTribune.releaseYear"},
		probe{"recEpisode.jsonForClient.originalAirDate"},
	)
	description := chain(doc, "",
		probe{"recSportEvent.jsonForClient.description"},
		probe{"recMovie.jsonForClient.plot"},
		probe{"recEpisode.jsonForClient.description"},
	)
	title := chain(doc, "",
		probe{"recManualProgram.jsonForClient.title"},
		probe{"recSportEvent.jsonForClient.eventTitle"},
		probe{"recMovie.jsonForClient.title"},
		probe{"recEpisode.jsonForClient.title"},
	)
	programID := chain(doc, "",
		probe{"recManualProgram.jsonForClient.objectID"},
	)
	// Sports events without a program id fall back to a derived
	// objectID.title key before the movie and episode probes run.
	programID = chain(doc, textutil.Clean(programID+"."+title, map[rune]string{' ': ""}),
		probe{"recSportEvent.jsonFromTribune.program.tmsId"},
	)
	programID = chain(doc, programID,
		probe{"recMovieAiring.jsonFromTribune.program.tmsId"},
		probe{"recEpisode.jsonFromTribune.program.tmsId"},
	)
	date := chain(doc, "",
		probe{"recManualProgramAiring.jsonForClient.airDate"},
		probe{"recSportEvent.jsonForClient.airDate"},
		probe{"recMovie.jsonForClient.releaseYear"},
		probe{"recEpisode.jsonForClient.airDate"},
	)
	seriesID := chain(doc, "", probe{"recSeries.jsonFromTribune.tmsId"})
	series := chain(doc, title, probe{"recSeries.jsonForClient.title"})
	season := chain(doc, "0", probe{"recEpisode.jsonForClient.seasonNumber"})
	episode := chain(doc, "0", probe{"recEpisode.jsonForClient.episodeNumber"})
	genre := chain(doc, "Drama",
		probe{"recEpisode.jsonFromTribune.program.genres"},
		probe{"recSportEvent.jsonFromTribune.program.genres"},
		probe{"recSeries.jsonFromTribune.genres"},
		probe{"recMovie.jsonFromTribune.genres"},
		probe{"recMovieAiring.jsonFromTribune.program.genres"},
	)
	director := chain(doc, "Unknown",
		probe{"recMovie.jsonForClient.directors"},
		probe{"recMovie.jsonFromTribune.directors"},
	)
	genre = genreCaser.String(genre)

	rec := Recording{
		Series:          series,
		SeriesID:        seriesID,
		Season:          pad2(season),
		Episode:         pad2(episode),
		Title:           title,
		Description:     description,
		Genre:           genre,
		Director:        director,
		Airdate:         airdate,
		Date:            date,
		QualityHeight:   quality,
		DurationSeconds: duration,
		Status:          status,
		Document:        doc,
	}

	rec.EndTime = parseEndTime(end, logger)

	switch {
	case doc.Has("recSeason"):
		rec.Type = TypeTV
		rec.Tags = tvTags(rec, season, episode, end)
	case entity == "Sports":
		rec.Type = TypeSports
		rec.Tags = movieTags(rec, end)
	default:
		// Manual recordings and movie airings are both filed as movies.
		rec.Type = TypeMovie
		rec.Tags = movieTags(rec, end)
	}

	applyNaming(&rec, doc, templates, entity)

	rec.Identity = programID
	if rec.Identity == "" || (rec.Type == TypeTV && strings.HasPrefix(rec.Identity, "SH")) {
		// Series-level SH ids are not unique per episode; derive a key
		// from the cleaned build name instead, dots for spaces, matching
		// the history-file convention.
		rec.Identity = textutil.Clean(rec.DisplayName, map[rune]string{' ': "."})
	}

	return rec
}

func applyNaming(rec *Recording, doc Value, templates naming.Templates, entity string) {
	fields := rec.templateFields()

	var display string
	switch rec.Type {
	case TypeTV:
		rec.SeasonEpisode = "S" + rec.Season + "E" + rec.Episode
		switch {
		case templates.ForTV() != "":
			display = naming.Fill(templates.ForTV(), mergeFields(fields, doc.Flatten()))
		case templates.MCE:
			display = rec.Series + "_" + strings.ReplaceAll(rec.Airdate, "-", "")
		case rec.Season == "00" && rec.Episode == "00":
			// No season/episode data; callers divert these to the fail
			// tree, signaled by the empty SeasonEpisode sentinel.
			rec.SeasonEpisode = ""
			display = rec.Series + " - " + truncate(rec.Date, 10)
			if rec.Title != "" {
				display += " - " + rec.Title
			}
		default:
			display = rec.Series + " - " + rec.SeasonEpisode
			if rec.Title != "" {
				display += " - " + rec.Title
			}
		}
	case TypeSports:
		if tpl := templates.ForSports(); tpl != "" {
			display = naming.Fill(tpl, mergeFields(fields, doc.Flatten()))
		} else {
			display = rec.Genre + " - " + rec.Title + " (" + dateOnly(rec.Date) + ")"
		}
	default:
		if tpl := templates.ForMovie(); tpl != "" {
			display = naming.Fill(tpl, mergeFields(fields, doc.Flatten()))
		} else if entity == entityManual {
			display = rec.Title + " (" + dateOnly(rec.Date) + ")"
		} else {
			display = rec.Title + " (" + rec.Date + ")"
		}
	}

	rec.DisplayName = textutil.Squish(display)
	rec.BuildPath = textutil.Clean(rec.DisplayName, nil)
}

// templateFields exposes the normalized fields available to naming templates.
func (r Recording) templateFields() map[string]string {
	return map[string]string{
		"series":      r.Series,
		"season":      r.Season,
		"episode":     r.Episode,
		"title":       r.Title,
		"description": r.Description,
		"genre":       r.Genre,
		"director":    r.Director,
		"airdate":     r.Airdate,
		"date":        r.Date,
		"year":        dateOnly(r.Date),
		"type":        string(r.Type),
	}
}

func mergeFields(fields, flat map[string]string) map[string]string {
	merged := make(map[string]string, len(fields)+len(flat))
	for k, v := range flat {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func parseEndTime(value string, logger *slog.Logger) time.Time {
	for _, layout := range []string{"2006-01-02T15:04Z07:00", time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	logger.Warn("malformed end timestamp, using default epoch",
		logging.String("value", value))
	ts, _ := time.Parse("2006-01-02T15:04Z07:00", defaultEndTime)
	return ts.UTC()
}

// movieTags builds the MP4-atom tag set for movies, sports events, and
// manual recordings. Director fills the artist slots.
func movieTags(r Recording, end string) map[string]string {
	return cleanTags(map[string]string{
		"©nam":        r.Title,
		"title":       r.Title,
		"©ART":        r.Director,
		"aART":        r.Director,
		"author":      r.Director,
		"©gen":        r.Genre,
		"genre":       r.Genre,
		"cpil":        "false",
		"pgap":        "false",
		"hdvd":        "2",
		"stik":        "Short Film",
		"mediaType":   "Short Film",
		"©day":        end,
		"releaseDate": end,
		"desc":        r.Description,
		"description": r.Description,
		"year":        r.Date,
	})
}

// tvTags builds the MP4-atom tag set for episodes. The series fills the
// artist and album slots; season and episode use the raw unpadded numbers.
func tvTags(r Recording, season, episode, end string) map[string]string {
	album := r.Series + ", Season " + season
	return cleanTags(map[string]string{
		"©nam":         r.Title,
		"title":        r.Title,
		"©ART":         r.Series,
		"aART":         r.Series,
		"©alb":         r.Series,
		"author":       r.Series,
		"album_artist": r.Series,
		"tvsh":         r.Series,
		"©gen":         r.Genre,
		"genre":        r.Genre,
		"©day":         end,
		"releaseDate":  end,
		"desc":         r.Description,
		"description":  r.Description,
		"tvsn":         season,
		"tvSeason":     season,
		"soal":         album,
		"sortAlbum":    album,
		"stik":         "TV Show",
		"mediaType":    "TV Show",
		"hdvd":         "2",
		"cpil":         "false",
		"pgap":         "false",
		"tves":         episode,
		"tven":         episode,
		"episode_id":   episode,
		"tvEpisode":    episode,
		"track":        episode,
	})
}

// cleanTags sanitizes every value and drops the ones that end up empty; the
// external tagger receives only scalar, cleaned strings.
func cleanTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for key, value := range tags {
		cleaned := textutil.Clean(value, nil)
		if cleaned == "" {
			continue
		}
		out[key] = cleaned
	}
	return out
}

// pad2 left-pads a numeric string to two digits.
func pad2(value string) string {
	value = strings.TrimSpace(value)
	for len(value) < 2 {
		value = "0" + value
	}
	return value
}

func dateOnly(value string) string {
	if i := strings.IndexByte(value, 'T'); i >= 0 {
		return value[:i]
	}
	return value
}

func truncate(value string, n int) string {
	if len(value) > n {
		return value[:n]
	}
	return value
}
