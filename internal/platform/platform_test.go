package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		osName string
		want   Platform
	}{
		{"Linux", Linux},
		{"linux", Linux},
		{"Linux 6.1", Linux},
		{"Mac OS X", Darwin},
		{"mac os x 14.2", Darwin},
		{"Windows 10", Windows},
		{"Windows Server 2022", Windows},
		{"FreeBSD", "freebsd"},
		{"Sun OS", "sunos"},
		{" Plan 9\t", "plan9"},
		{"darwin", "darwin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Detect(tt.osName), "Detect(%q)", tt.osName)
	}
}

func TestSharedLibExt(t *testing.T) {
	assert.Equal(t, ".so", Linux.SharedLibExt())
	assert.Equal(t, ".dylib", Darwin.SharedLibExt())
	assert.Equal(t, ".dll", Windows.SharedLibExt())
	assert.Equal(t, ".so", Platform("freebsd").SharedLibExt())
}

func TestIsWindows(t *testing.T) {
	assert.True(t, Windows.IsWindows())
	assert.False(t, Linux.IsWindows())
	assert.False(t, Darwin.IsWindows())
}
