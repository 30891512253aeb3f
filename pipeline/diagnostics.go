package pipeline

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/aluiziolira/go-headline-log/config"
	"github.com/aluiziolira/go-headline-log/scraper"
)

var skipDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	"node_modules": true,
}

// LogTree logs the files and directories under root, one line per entry.
func LogTree(logger *slog.Logger, root string) {
	if root == "" {
		return
	}
	logger.Info("printing tree of files/dirs", slog.String("root", root))
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("tree walk error", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(os.PathSeparator)) + 1
		}
		indent := strings.Repeat("    ", depth)
		if d.IsDir() {
			if rel != "." && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			logger.Info(indent + "+--" + d.Name() + "/")
			return nil
		}
		logger.Info(indent + "+--" + d.Name())
		return nil
	})
	if err != nil {
		logger.Warn("failed to walk directory tree", slog.Any("error", err))
	}
}

// DumpFile logs the contents of path.
func DumpFile(logger *slog.Logger, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("cannot read data file", slog.String("path", path), slog.Any("error", err))
		return
	}
	logger.Info("contents of data file", slog.String("path", path), slog.String("contents", string(data)))
}

// PublishMetrics writes the registry to the textfile collector path and/or
// pushes it to a Pushgateway. Failures are logged, never returned.
func PublishMetrics(cfg *config.Config, m *scraper.Metrics, logger *slog.Logger) {
	if m == nil {
		return
	}
	if cfg.MetricsFile != "" {
		if err := writeTextfile(cfg.MetricsFile, m.Registry); err != nil {
			logger.Warn("failed to write metrics file", slog.String("path", cfg.MetricsFile), slog.Any("error", err))
		} else {
			logger.Debug("wrote metrics file", slog.String("path", cfg.MetricsFile))
		}
	}
	if cfg.PushgatewayURL != "" {
		err := push.New(cfg.PushgatewayURL, cfg.PushJob).Gatherer(m.Registry).Push()
		if err != nil {
			logger.Warn("failed to push metrics", slog.String("url", cfg.PushgatewayURL), slog.Any("error", err))
		}
	}
}

func writeTextfile(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return prometheus.WriteToTextfile(path, g)
}
