package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

var errTooDeep = errors.New("directory tree too deep")

// Node is either a *Directory or a *File.
type Node interface {
	node()
}

type Directory struct {
	Name     string `json:"name"`
	Children []Node `json:"children"`
}

type File struct {
	Name string   `json:"name"`
	URL  string   `json:"url"`
	Type FileType `json:"type"`
}

func (*Directory) node() {}
func (*File) node()      {}

// treeBuilder walks the root of a filesystem into a Directory tree holding
// only media files.
type treeBuilder struct {
	fs       *filesystem
	maxDepth int
	log      *zap.Logger
}

func (b *treeBuilder) build(ctx context.Context) (*Directory, error) {
	onPath := map[string]bool{}
	return b.buildDirectory(ctx, b.fs.path, b.fs.real, 0, onPath)
}

// buildDirectory lists dir in os.ReadDir order. Any read or stat failure
// aborts the whole walk. canon is dir with symlinks evaluated; onPath holds
// the canonical paths of dir's ancestors and is used to break symlink cycles.
func (b *treeBuilder) buildDirectory(ctx context.Context, dir, canon string, depth int, onPath map[string]bool) (*Directory, error) {
	if depth > b.maxDepth {
		return nil, fmt.Errorf("%s: %w", dir, errTooDeep)
	}

	onPath[canon] = true
	defer delete(onPath, canon)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	d := &Directory{
		Name:     b.fs.nameFromPath(dir),
		Children: make([]Node, 0, len(entries)),
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		child := filepath.Join(dir, entry.Name())
		symlink := entry.Type()&os.ModeSymlink != 0

		info, err := os.Stat(child)
		if err != nil {
			if symlink && os.IsNotExist(err) {
				b.log.Debug("skipping dangling symlink", zap.String("path", child))
				continue
			}
			return nil, fmt.Errorf("stat: %w", err)
		}

		childCanon := filepath.Join(canon, entry.Name())
		if symlink {
			childCanon, err = filepath.EvalSymlinks(child)
			if err != nil {
				return nil, fmt.Errorf("resolve symlink: %w", err)
			}
			if !within(b.fs.real, childCanon) {
				b.log.Debug("skipping symlink outside root", zap.String("path", child), zap.String("target", childCanon))
				continue
			}
		}

		if info.IsDir() {
			if onPath[childCanon] {
				b.log.Debug("skipping symlink cycle", zap.String("path", child), zap.String("target", childCanon))
				continue
			}

			sub, err := b.buildDirectory(ctx, child, childCanon, depth+1, onPath)
			if err != nil {
				return nil, err
			}
			d.Children = append(d.Children, sub)
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		ft := classify(b.fs.extensionFromPath(child))
		if ft == TypeUnknown {
			continue
		}

		d.Children = append(d.Children, &File{
			Name: b.fs.nameFromPath(child),
			URL:  b.fs.urlFromPath(child),
			Type: ft,
		})
	}

	return d, nil
}
