package config

// Default returns the built-in configuration. Loading a file overlays
// parsed values on top of these.
func Default() Config {
	return Config{
		Devices: Devices{
			Discovery:    true,
			DiscoveryURL: "https://api.tablotv.com/assocserver/getipinfo/",
		},
		Paths: Paths{
			TVDir:         "~/tablotogo/tv",
			MovieDir:      "~/tablotogo/movies",
			SportsDir:     "~/tablotogo/sports",
			FailDir:       "~/tablotogo/fail",
			TempDir:       "~/tablotogo/tmp",
			DuplicatesDir: "~/tablotogo/duplicates",
		},
		Cache: Cache{
			Path:            "~/tablotogo/catalog.json",
			ValiditySeconds: 604800,
		},
		History: History{
			Path: "~/tablotogo/transfer.history",
		},
		Naming: Naming{
			CreateSeriesDirs: true,
		},
		Tools: Tools{
			FFmpeg:          "ffmpeg",
			TranscodeArgs:   "-i {input} -c copy {output}",
			TagArgs:         "-i {input} -c copy",
			CCExtractor:     "ccextractor",
			CCExtractorArgs: "{input} -o {subtitles}",
			Transcode:       true,
			Tag:             true,
		},
		Workflow: Workflow{
			SleepSeconds: 1800,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
