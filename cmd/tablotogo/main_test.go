package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tablotogo/internal/metadata"
)

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, []string{"--help"})
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, want := range []string{"run", "list", "complete", "config"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestRenderMatchesColumns(t *testing.T) {
	out := renderTable([]string{"ID", "Name"}, [][]string{{"75", "Show - S01E05 - Pilot"}}, nil)
	if !strings.Contains(out, "Show - S01E05 - Pilot") {
		t.Errorf("table missing row: %s", out)
	}
	if !strings.Contains(out, "ID") {
		t.Errorf("table missing header: %s", out)
	}
}

func TestRenderDocumentsFlattensSource(t *testing.T) {
	doc, err := metadata.Decode([]byte(`{
	  "recEpisode": {"jsonForClient": {"title": "Pilot", "video": {"height": 720}}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	rec := metadata.Recording{
		Device:      "192.168.1.10",
		RecordingID: 75,
		DisplayName: "Show - S01E05 - Pilot",
		Document:    doc,
	}

	out := renderDocuments([]metadata.Recording{rec})
	if !strings.Contains(out, "Show - S01E05 - Pilot (192.168.1.10 id 75)") {
		t.Errorf("missing header line:\n%s", out)
	}
	if !strings.Contains(out, "recEpisode.jsonForClient.title = Pilot") {
		t.Errorf("missing flattened field:\n%s", out)
	}
	// Dotted paths come out sorted: title before video.height.
	title := strings.Index(out, "recEpisode.jsonForClient.title")
	height := strings.Index(out, "recEpisode.jsonForClient.video.height")
	if title == -1 || height == -1 || title > height {
		t.Errorf("fields not in sorted order:\n%s", out)
	}
}

func TestFilterFlagsOverrideConfig(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Filters.DelaySeconds = 300
	cfg.Filters.MinQuality = 480

	flags := filterFlags{delay: -1, minDuration: -1, minQuality: 720}
	filters, err := flags.build(cfg, []string{"simpsons"})
	if err != nil {
		t.Fatal(err)
	}
	if filters.Delay.Seconds() != 300 {
		t.Errorf("delay = %v, want config default 300s", filters.Delay)
	}
	if filters.MinQuality != 720 {
		t.Errorf("min quality = %d, want flag override 720", filters.MinQuality)
	}
	if filters.SearchTerm != "simpsons" {
		t.Errorf("search term = %q", filters.SearchTerm)
	}
}
