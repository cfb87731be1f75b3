package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()

	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestVersionInfoString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info VersionInfo
		want string
	}{
		{
			name: "long commit is shortened",
			info: VersionInfo{Version: "v1.2.0", Commit: "0123456789abcdef", GoVersion: "go1.25.2", Platform: "linux/amd64"},
			want: "v1.2.0 (commit 01234567, go1.25.2, linux/amd64)",
		},
		{
			name: "missing commit",
			info: VersionInfo{Version: "dev", GoVersion: "go1.25.2", Platform: "darwin/arm64"},
			want: "dev (commit unknown, go1.25.2, darwin/arm64)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}
