package links

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "link.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "One per line",
			content: "https://a.test\nhttps://b.test\n",
			want:    []string{"https://a.test", "https://b.test"},
		},
		{
			name:    "Blank lines, comments and whitespace",
			content: "\n  https://a.test  \n\n# paused\n\t\r\nhttps://b.test\r\n",
			want:    []string{"https://a.test", "https://b.test"},
		},
		{
			name:    "Duplicates and order kept",
			content: "https://b.test\nhttps://a.test\nhttps://b.test",
			want:    []string{"https://b.test", "https://a.test", "https://b.test"},
		},
		{
			name:    "Byte order mark",
			content: "\ufeffhttps://a.test\n",
			want:    []string{"https://a.test"},
		},
		{
			name:    "Empty file",
			content: "",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeList(t, tt.content))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, got)
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	require.NoError(t, os.WriteFile(filepath.Join(home, "link.txt"), []byte("https://a.test\n"), 0o600))

	got, err := Load("~/link.txt")
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"https://a.test"}, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}
