// Package naming fills user-configurable templates from recording metadata to
// produce display names and filesystem-safe build paths.
package naming

import (
	"strings"

	"tablotogo/internal/textutil"
)

// Default templates applied when no custom template is configured.
const (
	DefaultTV     = "{series} - S{season}E{episode} - {title}"
	DefaultTVDate = "{series} - {date} - {title}"
	DefaultMovie  = "{title} ({year})"
	DefaultSports = "{genre} - {title} ({date})"
)

// Templates carries the per-type naming configuration. An empty field means
// the built-in template for that type applies. Custom, when set, overrides
// every type. MCE switches TV naming to the MCEBuddy Series_YYYYMMDD form.
type Templates struct {
	Custom string
	TV     string
	Movie  string
	Sports string
	MCE    bool
}

// ForTV returns the template used for a tv recording, or "" when the
// built-in selection logic should run.
func (t Templates) ForTV() string {
	if t.Custom != "" {
		return t.Custom
	}
	return t.TV
}

// ForMovie returns the template used for a movie recording.
func (t Templates) ForMovie() string {
	if t.Custom != "" {
		return t.Custom
	}
	return t.Movie
}

// ForSports returns the template used for a sports recording.
func (t Templates) ForSports() string {
	if t.Custom != "" {
		return t.Custom
	}
	return t.Sports
}

// Fill substitutes every {key} occurrence in template with the corresponding
// field value. Placeholders with no matching field are left verbatim so a
// misspelled key surfaces in the produced name instead of failing the build.
func Fill(template string, fields map[string]string) string {
	out := template
	for key, value := range fields {
		placeholder := "{" + key + "}"
		if strings.Contains(out, placeholder) {
			out = strings.ReplaceAll(out, placeholder, value)
		}
	}
	return out
}

// Build fills the template, squishes the trailing separators left by empty
// fields, and returns both the human-facing display name and the sanitized
// on-disk form.
func Build(template string, fields map[string]string) (display, build string) {
	display = textutil.Squish(Fill(template, fields))
	return display, textutil.Clean(display, nil)
}
