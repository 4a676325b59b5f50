package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"storyreel/config"
)

// Staged is a local copy of a remote artifact prefix.
type Staged struct {
	Root       string
	ScriptPath string
	ImagesDir  string
	AudioDir   string
	MusicDir   string
	Files      int
}

// Stage downloads script.json and the images/, audio/ and music/ trees under
// uri (s3://bucket/prefix/) into dest, at most concurrency objects at a time.
func Stage(ctx context.Context, store ObjectStore, uri, dest string, concurrency int) (*Staged, error) {
	bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	ok, err := store.Exists(ctx, bucket, prefix+config.ScriptFile)
	if err != nil {
		return nil, fmt.Errorf("check script: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s has no %s", uri, config.ScriptFile)
	}

	keys, err := store.ListKeys(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	st := &Staged{
		Root:       dest,
		ScriptPath: filepath.Join(dest, config.ScriptFile),
		ImagesDir:  filepath.Join(dest, config.ImagesSubdir),
		AudioDir:   filepath.Join(dest, config.AudioSubdir),
		MusicDir:   filepath.Join(dest, config.MusicSubdir),
	}
	for _, dir := range []string{st.ImagesDir, st.AudioDir, st.MusicDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	if concurrency <= 0 {
		concurrency = config.StagingConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, key := range keys {
		rel, ok := stagedPath(strings.TrimPrefix(key, prefix))
		if !ok {
			continue
		}
		local := filepath.Join(dest, rel)
		st.Files++
		g.Go(func() error {
			return download(gctx, store, bucket, key, local)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

// stagedPath maps a key relative to the prefix onto the local layout. Keys
// outside the known subtrees, directory markers and anything escaping the
// root are ignored.
func stagedPath(rel string) (string, bool) {
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", false
	}
	clean := path.Clean(rel)
	if clean == config.ScriptFile {
		return clean, true
	}
	dir, name := path.Split(clean)
	switch strings.TrimSuffix(dir, "/") {
	case config.ImagesSubdir, config.AudioSubdir, config.MusicSubdir:
		if name == "" || name == ".." {
			return "", false
		}
		return filepath.FromSlash(clean), true
	default:
		return "", false
	}
}

func download(ctx context.Context, store ObjectStore, bucket, key, local string) error {
	body, err := store.Get(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer body.Close()

	f, err := os.Create(local)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	return f.Close()
}

// Upload puts a finished video at uri (s3://bucket/key).
func Upload(ctx context.Context, store ObjectStore, localPath, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		key += filepath.Base(localPath)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := store.Put(ctx, bucket, key, f, "video/mp4"); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
