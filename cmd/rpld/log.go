package main

import (
	"log/slog"
	"path/filepath"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the process-wide logger from lc, following the
// teacher's newSlogLogger/configureLogger split: level and timestamping
// come from [slogutil.Config], while a configured log file is wired in
// as the handler's underlying io.Writer via lumberjack rather than
// through slogutil itself.
func newLogger(lc logConfig, workDir string) (l *slog.Logger) {
	lvl := slog.LevelInfo
	if lc.Verbose {
		lvl = slog.LevelDebug
	}

	cfg := &slogutil.Config{
		Format:       slogutil.FormatDefault,
		Level:        lvl,
		AddTimestamp: true,
	}

	if lc.File != "" {
		path := lc.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		cfg.Output = &lumberjack.Logger{
			Filename:   path,
			Compress:   lc.Compress,
			LocalTime:  lc.LocalTime,
			MaxBackups: lc.MaxBackups,
			MaxSize:    lc.MaxSize,
			MaxAge:     lc.MaxAge,
		}
	}

	return slogutil.New(cfg)
}
