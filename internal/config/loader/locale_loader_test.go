package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLocale = `
titles:
  Face:
    EN: Face Map
    zh: 面相图
labels:
  Life Palace:
    ja: 命宮
`

func TestParseLocale_Normalizes(t *testing.T) {
	file, err := ParseLocale([]byte(sampleLocale))
	require.NoError(t, err)
	assert.Equal(t, "Face Map", file.Titles["face"]["en"])
	assert.Equal(t, "面相图", file.Titles["face"]["zh"])
	assert.Equal(t, "命宮", file.Labels["Life Palace"]["ja"])
}

func TestParseLocale_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key": "colors:\n  face: red\n",
		"bad lang":    "titles:\n  face:\n    english: Face\n",
		"non string":  "titles:\n  face:\n    en: [a, b]\n",
		"empty text":  "labels:\n  Life Line:\n    en: \"\"\n",
		"malformed":   "titles: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLocale([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestParseLocale_Empty(t *testing.T) {
	file, err := ParseLocale(nil)
	require.NoError(t, err)
	assert.Empty(t, file.Titles)
}

func TestLocaleLoader_ReloadNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locale.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLocale), 0o644))

	l, err := NewLocaleLoader(path)
	require.NoError(t, err)
	first := l.Snapshot()
	assert.Equal(t, int64(1), first.Version)

	// snapshot is a copy
	first.File.Titles["face"]["en"] = "mutated"
	assert.Equal(t, "Face Map", l.Snapshot().File.Titles["face"]["en"])

	got := make(chan LocaleSnapshot, 4)
	l.Subscribe(func(s LocaleSnapshot) { got <- s })
	select {
	case s := <-got:
		assert.Equal(t, int64(1), s.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive initial snapshot")
	}

	require.NoError(t, os.WriteFile(path, []byte("titles:\n  palm:\n    en: Palm Lines\n"), 0o644))
	require.NoError(t, l.Reload())
	assert.Eventually(t, func() bool {
		for {
			select {
			case s := <-got:
				if s.File.Titles["palm"]["en"] == "Palm Lines" {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, l.Snapshot().Version, int64(2))
}

func TestLocaleLoader_MissingFile(t *testing.T) {
	_, err := NewLocaleLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = NewLocaleLoader(" ")
	assert.Error(t, err)
}
