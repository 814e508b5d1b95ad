package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"tablotogo/internal/logging"
	"tablotogo/internal/metadata"
	"tablotogo/internal/naming"
	"tablotogo/internal/services"
)

var commandContext = exec.CommandContext

// fillArgs splits a command argument template on whitespace and substitutes
// the placeholders field by field, so filled values may contain spaces
// without being re-split.
func fillArgs(template string, fields map[string]string) []string {
	var args []string
	for _, arg := range strings.Fields(template) {
		args = append(args, naming.Fill(arg, fields))
	}
	return args
}

func (p *Pipeline) runTool(ctx context.Context, binary string, args []string) error {
	cmd := commandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, tail(string(output), 400))
	}
	return nil
}

// extractCaptions runs ccextractor against the container. Caption failures
// never block the transfer; an empty path is returned instead.
func (p *Pipeline) extractCaptions(ctx context.Context, container string, rec metadata.Recording, log *slog.Logger) string {
	subtitles := strings.TrimSuffix(container, filepath.Ext(container)) + ".srt"
	args := fillArgs(p.cfg.Tools.CCExtractorArgs, map[string]string{
		"input":     container,
		"subtitles": subtitles,
		"build":     rec.BuildPath,
	})
	if err := p.runTool(ctx, p.cfg.Tools.CCExtractor, args); err != nil {
		log.Warn("caption extraction failed", logging.Error(err))
		os.Remove(subtitles)
		return ""
	}
	if info, err := os.Stat(subtitles); err != nil || info.Size() == 0 {
		log.Warn("caption extraction produced no subtitles")
		os.Remove(subtitles)
		return ""
	}
	return subtitles
}

// transcode invokes the external encoder on the container, or straight on
// the device playlist when use_playlist is configured.
func (p *Pipeline) transcode(ctx context.Context, rec metadata.Recording, container, subtitles string, log *slog.Logger) (string, error) {
	output := strings.TrimSuffix(container, filepath.Ext(container)) + ".mp4"

	input := container
	playlist := ""
	if p.cfg.Tools.UsePlaylist {
		kind := "series"
		if rec.Type == metadata.TypeMovie {
			kind = "movies"
		}
		url, err := p.source.WatchPlaylist(ctx, rec.Device, kind, rec.RecordingID)
		if err != nil {
			return "", services.Wrap(services.ErrStage, "pipeline", "transcode", "request playlist", err)
		}
		playlist = url
		input = url
	}

	args := fillArgs(p.cfg.Tools.TranscodeArgs, map[string]string{
		"input":     input,
		"output":    output,
		"build":     rec.BuildPath,
		"subtitles": subtitles,
		"m3u8":      playlist,
	})
	log.Info("transcoding", logging.String("output", output))
	if err := p.runTool(ctx, p.cfg.Tools.FFmpeg, args); err != nil {
		os.Remove(output)
		return "", services.Wrap(services.ErrStage, "pipeline", "transcode", rec.BuildPath, err)
	}
	return output, nil
}

// tag remuxes the file with its metadata tags and swaps the result into
// place under the original name.
func (p *Pipeline) tag(ctx context.Context, input string, tags map[string]string) error {
	ext := filepath.Ext(input)
	tagged := strings.TrimSuffix(input, ext) + ".tagged" + ext

	args := fillArgs(p.cfg.Tools.TagArgs, map[string]string{"input": input})

	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "-metadata", key+"="+tags[key])
	}
	args = append(args, tagged)

	if err := p.runTool(ctx, p.cfg.Tools.FFmpeg, args); err != nil {
		os.Remove(tagged)
		return err
	}
	return os.Rename(tagged, input)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
