package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// mountPrefix is prepended to every file url handed out in a tree listing.
const mountPrefix = "/file"

var (
	errNotFound   = errors.New("file does not exist")
	errPathEscape = errors.New("path escapes root")
)

// filesystem maps between paths under a single root directory and the
// public urls that address them.
type filesystem struct {
	path string // absolute, clean
	real string // path with symlinks evaluated
}

func newFilesystem(root string) (*filesystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", abs)
	}

	return &filesystem{path: abs, real: real}, nil
}

// nameFromPath returns the last segment of fpath, or "" for the root itself.
func (fs *filesystem) nameFromPath(fpath string) string {
	clean := filepath.Clean(fpath)
	if clean == fs.path {
		return ""
	}
	return filepath.Base(clean)
}

// extensionFromPath returns the text after the last dot of the final path
// segment. Dots in parent directories are ignored, so "v1.2/movie" has no
// extension.
func (fs *filesystem) extensionFromPath(fpath string) string {
	name := filepath.Base(fpath)
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

// urlFromPath strips the root from fpath, mounts it under mountPrefix and
// percent-encodes each segment.
func (fs *filesystem) urlFromPath(fpath string) string {
	rel, err := filepath.Rel(fs.path, filepath.Clean(fpath))
	if err != nil {
		rel = fpath
	}

	p := mountPrefix
	if rel != "." {
		p += "/" + strings.TrimPrefix(filepath.ToSlash(rel), "/")
	}

	return (&url.URL{Path: p}).EscapedPath()
}

// resolve turns an untrusted, percent-encoded suffix (the part of a file url
// after its mount point) into an absolute path under the root.
func (fs *filesystem) resolve(suffix string) (string, error) {
	rel, err := url.PathUnescape(suffix)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNotFound, err)
	}

	if strings.IndexByte(rel, 0) >= 0 {
		return "", errPathEscape
	}
	for _, seg := range strings.FieldsFunc(rel, isSeparator) {
		if seg == ".." {
			return "", errPathEscape
		}
	}
	if strings.HasSuffix(rel, "/") {
		return "", errNotFound
	}

	full := filepath.Join(fs.path, filepath.FromSlash(rel))
	if !within(fs.path, full) {
		return "", errPathEscape
	}

	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNotFound, err)
	}
	if !within(fs.real, real) {
		return "", errPathEscape
	}

	return full, nil
}

// Get opens the regular file addressed by fpath.
func (fs *filesystem) Get(fpath string) (http.File, error) {
	full, err := fs.resolve(fpath)
	if err != nil {
		return nil, err
	}

	// opening a fifo blocks until a writer shows up
	info, err := os.Stat(full)
	if err != nil {
		return nil, errNotFound
	}
	if !info.Mode().IsRegular() {
		return nil, errNotFound
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotFound
		}
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !stat.Mode().IsRegular() {
		f.Close()
		return nil, errNotFound
	}

	return f, nil
}

// within reports whether p is root or lies below it. Both must be clean.
func within(root, p string) bool {
	if p == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(p, root)
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}
