package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeAtlas(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFormats(t *testing.T) {
	path := writeAtlas(t, `
formats:
  - name: squash
    goal: 11
  - name: badminton
    goal: 21
default: squash
`)

	a, err := LoadFormats(path)
	require.NoError(t, err)

	f, ok := a.Lookup("badminton")
	require.True(t, ok)
	require.Equal(t, 21, f.Goal)

	require.Equal(t, "squash", a.DefaultFormat().Name)
	require.Equal(t, 11, a.DefaultFormat().Goal)

	_, ok = a.Lookup("darts")
	require.False(t, ok)
}

func TestLoadFormatsErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFormats(filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorContains(t, err, "read formats")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadFormats(writeAtlas(t, "formats: ["))
		require.ErrorContains(t, err, "parse formats")
	})

	t.Run("empty atlas", func(t *testing.T) {
		_, err := LoadFormats(writeAtlas(t, "formats: []\ndefault: x\n"))
		require.ErrorContains(t, err, "no formats declared")
	})

	t.Run("non-positive goal", func(t *testing.T) {
		_, err := LoadFormats(writeAtlas(t, `
formats:
  - name: squash
    goal: 0
default: squash
`))
		require.ErrorContains(t, err, "goal must be at least 1")
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := LoadFormats(writeAtlas(t, `
formats:
  - name: squash
    goal: 11
  - name: squash
    goal: 15
default: squash
`))
		require.ErrorContains(t, err, "duplicate format")
	})

	t.Run("unknown default", func(t *testing.T) {
		_, err := LoadFormats(writeAtlas(t, `
formats:
  - name: squash
    goal: 11
default: tennis
`))
		require.ErrorContains(t, err, `default format "tennis" not declared`)
	})
}

func TestBuiltinAtlas(t *testing.T) {
	a := Builtin()
	require.NoError(t, a.validate(), "the compiled-in atlas should always validate")

	def := a.DefaultFormat()
	require.Equal(t, "race30", def.Name)
	require.Equal(t, 30, def.Goal)

	for _, f := range a.Formats {
		require.Positive(t, f.Goal, "format %s", f.Name)
	}
}
