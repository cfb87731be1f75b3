package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

func TestResolvePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "res"), 0750))

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr syncerr.Code
	}{
		{name: "root", rel: "", want: dir},
		{name: "dot", rel: ".", want: dir},
		{name: "file", rel: "card_001.json", want: filepath.Join(dir, "card_001.json")},
		{name: "nested", rel: "res/icon.png", want: filepath.Join(dir, "res", "icon.png")},
		{name: "inner dot-dot", rel: "res/../card_001.json", want: filepath.Join(dir, "card_001.json")},
		{name: "absolute", rel: "/etc/passwd", wantErr: syncerr.CodeValidation},
		{name: "escape", rel: "../other/card.json", wantErr: syncerr.CodeValidation},
		{name: "nested escape", rel: "res/../../card.json", wantErr: syncerr.CodeValidation},
		{name: "git metadata", rel: ".git/config", wantErr: syncerr.CodeValidation},
		{name: "git directory", rel: ".git", wantErr: syncerr.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolvePath(dir, tt.rel)
			if tt.wantErr != syncerr.CodeUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, syncerr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePath_SymlinkStaysInside(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("secret"), 0600))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "link")))

	got, err := ResolvePath(dir, "link/secret")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, outside, "secret"), got)
}
