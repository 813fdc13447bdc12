package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
	"github.com/GriffinCanCode/modshell/internal/shared/utils"
)

// findManifest returns the first file in dir matching pattern, or "" if none
func findManifest(dir, pattern string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return filepath.Join(dir, filepath.FromSlash(matches[0])), nil
}

// collectArtifacts hashes every regular file under dir, ordered by relative
// path. Media types are only sniffed when detect is set.
func collectArtifacts(ctx context.Context, hasher *utils.Hasher, dir string, detect bool) ([]types.Artifact, error) {
	var (
		mu    sync.Mutex
		files []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		mu.Lock()
		files = append(files, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	artifacts := make([]types.Artifact, 0, len(files))
	for _, p := range files {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil, err
		}
		hash, err := hasher.HashFile(p)
		if err != nil {
			return nil, err
		}
		artifact := types.Artifact{Path: filepath.ToSlash(rel), Hash: hash}
		if detect {
			if mtype, err := mimetype.DetectFile(p); err == nil {
				artifact.MediaType = mtype.String()
			}
		}
		artifacts = append(artifacts, artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Path < artifacts[j].Path
	})
	return artifacts, nil
}
