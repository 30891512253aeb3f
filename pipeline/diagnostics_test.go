package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogTreeSkipsNoiseDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "log.json"), []byte("{}\n"), 0o644))

	logger, buf := bufferLogger()
	LogTree(logger, root)

	out := buf.String()
	require.Contains(t, out, "+--data/")
	require.Contains(t, out, "        +--log.json")
	require.NotContains(t, out, "objects")
	require.NotContains(t, out, "+--pkg")
	require.NotContains(t, out, "+--.git/")
}

func TestDumpFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"2024-01-01": "Old headline"}`), 0o644))

	logger, buf := bufferLogger()
	DumpFile(logger, path)
	require.Contains(t, buf.String(), "contents of data file")
	require.Contains(t, buf.String(), "Old headline")

	buf.Reset()
	DumpFile(logger, filepath.Join(t.TempDir(), "missing.json"))
	require.Contains(t, buf.String(), "level=WARN")
}
