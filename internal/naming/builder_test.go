package naming

import "testing"

func TestFillSubstitutesKnownKeys(t *testing.T) {
	got := Fill("{series} - S{season}E{episode}", map[string]string{
		"series":  "Show",
		"season":  "01",
		"episode": "05",
	})
	if got != "Show - S01E05" {
		t.Errorf("Fill = %q, want %q", got, "Show - S01E05")
	}
}

func TestFillLeavesUnknownPlaceholders(t *testing.T) {
	got := Fill("{series} - {bogus}", map[string]string{"series": "Foo"})
	if got != "Foo - {bogus}" {
		t.Errorf("Fill = %q, want %q", got, "Foo - {bogus}")
	}
}

func TestBuildSquishesAndSanitizes(t *testing.T) {
	display, build := Build("{title} - {missing}", map[string]string{
		"title":   "What's Up?",
		"missing": "",
	})
	if display != "What's Up?" {
		t.Errorf("display = %q, want %q", display, "What's Up?")
	}
	if build != "Whats Up" {
		t.Errorf("build = %q, want %q", build, "Whats Up")
	}
}

func TestTemplatesCustomOverridesAll(t *testing.T) {
	tpl := Templates{Custom: "{title}", TV: DefaultTV, Movie: DefaultMovie, Sports: DefaultSports}
	if tpl.ForTV() != "{title}" || tpl.ForMovie() != "{title}" || tpl.ForSports() != "{title}" {
		t.Error("Custom template should override every type")
	}
}
