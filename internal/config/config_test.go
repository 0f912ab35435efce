package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_JSONAppliesDefaultExitBehavior(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blend65.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"compilerOptions":{"target":"c64"}}`), 0o644))

	opts, err := Load(path, logrus.StandardLogger())
	require.NoError(t, err)
	assert.Equal(t, "c64", opts.Target)
	assert.Equal(t, "loop", opts.ExitBehavior)
}

func TestLoad_JSONWarnsOnUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blend65.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"compilerOptions":{"target":"c64","bogus":true}}`), 0o644))

	logger, hook := test.NewNullLogger()
	_, err := Load(path, logger)
	require.NoError(t, err)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)
}

func TestLoad_YAMLDecodesSameShapeAsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blend65.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compilerOptions:\n  target: c64\n  exitBehavior: reset\n"), 0o644))

	opts, err := Load(path, logrus.StandardLogger())
	require.NoError(t, err)
	assert.Equal(t, "c64", opts.Target)
	assert.Equal(t, "reset", opts.ExitBehavior)
}
