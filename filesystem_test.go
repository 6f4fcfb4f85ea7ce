package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilesystem(t *testing.T) *filesystem {
	t.Helper()
	fs, err := newFilesystem(t.TempDir())
	require.NoError(t, err)
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewFilesystem(t *testing.T) {
	dir := t.TempDir()

	_, err := newFilesystem(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	file := filepath.Join(dir, "song.mp3")
	writeFile(t, file, "x")
	_, err = newFilesystem(file)
	assert.Error(t, err)

	fs, err := newFilesystem(dir + "/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(dir), fs.path)
}

func TestNameFromPath(t *testing.T) {
	fs := newTestFilesystem(t)

	tests := []struct {
		path string
		want string
	}{
		{fs.path, ""},
		{fs.path + "/", ""},
		{fs.path + "/a", "a"},
		{fs.path + "/a/b", "b"},
		{fs.path + "/a/b.mp3", "b.mp3"},
		{fs.path + "/a/b/", "b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fs.nameFromPath(tt.path), "nameFromPath(%q)", tt.path)
	}
}

func TestExtensionFromPath(t *testing.T) {
	fs := newTestFilesystem(t)

	tests := []struct {
		path string
		want string
	}{
		{"/root/song.mp3", "mp3"},
		{"/root/SONG.MP3", "MP3"},
		{"/root/archive.tar.gz", "gz"},
		{"/root/.wav", "wav"},
		{"/root/noext", ""},
		{"/root/v1.2/movie", ""},
		{"/root/trailing.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fs.extensionFromPath(tt.path), "extensionFromPath(%q)", tt.path)
	}
}

func TestURLFromPath(t *testing.T) {
	fs := newTestFilesystem(t)

	tests := []struct {
		rel  string
		want string
	}{
		{"song.mp3", "/file/song.mp3"},
		{"sub/a.pdf", "/file/sub/a.pdf"},
		{"my song.mp3", "/file/my%20song.mp3"},
		{"100%.mp3", "/file/100%25.mp3"},
		{"what?.mp3", "/file/what%3F.mp3"},
		{"#1.mp3", "/file/%231.mp3"},
		{"café/é.mp3", "/file/caf%C3%A9/%C3%A9.mp3"},
	}
	for _, tt := range tests {
		got := fs.urlFromPath(filepath.Join(fs.path, tt.rel))
		assert.Equal(t, tt.want, got, "urlFromPath(%q)", tt.rel)
		assert.False(t, strings.Contains(got, fs.path), "url leaks root: %q", got)
	}

	assert.Equal(t, "/file", fs.urlFromPath(fs.path))
}

func TestURLRoundTrip(t *testing.T) {
	fs := newTestFilesystem(t)

	names := []string{
		"song.mp3",
		"sub/a.pdf",
		"with space/and+plus.mp3",
		"100% & more/;semi=colon,comma.wav",
		"hash#/question?.mov",
		"ünïcødé/日本語.mp4",
		"back\\slash.aac",
	}
	for _, name := range names {
		path := filepath.Join(fs.path, name)
		writeFile(t, path, name)

		url := fs.urlFromPath(path)
		require.True(t, strings.HasPrefix(url, mountPrefix+"/"), url)

		got, err := fs.resolve(strings.TrimPrefix(url, mountPrefix))
		require.NoError(t, err, name)
		assert.Equal(t, path, got)
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	fs := newTestFilesystem(t)
	writeFile(t, filepath.Join(fs.path, "song.mp3"), "x")

	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.mp3"), "secret")
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.mp3"), filepath.Join(fs.path, "link.mp3")))
	require.NoError(t, os.Symlink(outside, filepath.Join(fs.path, "linkdir")))

	escapes := []string{
		"/../../etc/passwd",
		"/..%2F..%2Fetc%2Fpasswd",
		"/%2e%2e/%2e%2e/etc/passwd",
		"/sub/../../song.mp3",
		"/song.mp3%00.pdf",
		"/link.mp3",
		"/linkdir/secret.mp3",
	}
	for _, suffix := range escapes {
		_, err := fs.resolve(suffix)
		assert.ErrorIs(t, err, errPathEscape, suffix)
	}
}

func TestResolveNotFound(t *testing.T) {
	fs := newTestFilesystem(t)
	writeFile(t, filepath.Join(fs.path, "song.mp3"), "x")

	for _, suffix := range []string{"/missing.mp3", "/%zz", "/%2Fetc%2Fpasswd", "/song.mp3/inner", "/song.mp3/"} {
		_, err := fs.resolve(suffix)
		assert.ErrorIs(t, err, errNotFound, suffix)
	}

	got, err := fs.resolve("/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fs.path, "song.mp3"), got)
}

func TestGet(t *testing.T) {
	fs := newTestFilesystem(t)
	writeFile(t, filepath.Join(fs.path, "sub", "a.pdf"), "pdf bytes")

	f, err := fs.Get("/sub/a.pdf")
	require.NoError(t, err)
	defer f.Close()

	stat, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", stat.Name())

	_, err = fs.Get("/sub")
	assert.ErrorIs(t, err, errNotFound)

	_, err = fs.Get("/")
	assert.ErrorIs(t, err, errNotFound)

	_, err = fs.Get("/sub/b.pdf")
	assert.ErrorIs(t, err, errNotFound)
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/srv", "/srv"))
	assert.True(t, within("/srv", "/srv/a"))
	assert.False(t, within("/srv", "/srvx/a"))
	assert.False(t, within("/srv", "/"))
	assert.True(t, within("/", "/etc"))
}
