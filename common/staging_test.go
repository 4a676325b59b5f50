package common

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

// memBucket is an in-memory ObjectStore keyed by "bucket/key".
type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newMemBucket(objects map[string]string) *memBucket {
	m := &memBucket{objects: make(map[string][]byte)}
	for k, v := range objects {
		m.objects[k] = []byte(v)
	}
	return m
}

func (m *memBucket) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBucket) Put(_ context.Context, bucket, key string, body io.Reader, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = b
	return nil
}

func (m *memBucket) Exists(_ context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}

func (m *memBucket) ListKeys(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		key, ok := strings.CutPrefix(k, bucket+"/")
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func TestParseURI(t *testing.T) {
	cases := []struct {
		uri         string
		bucket, key string
		wantErr     bool
	}{
		{"s3://media/jobs/42/", "media", "jobs/42/", false},
		{"s3://media", "media", "", false},
		{"s3:///key", "", "", true},
		{"https://media/key", "", "", true},
	}
	for _, c := range cases {
		b, k, err := ParseURI(c.uri)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseURI(%q) expected error", c.uri)
			}
			continue
		}
		if err != nil || b != c.bucket || k != c.key {
			t.Fatalf("ParseURI(%q) = %q, %q, %v; want %q, %q", c.uri, b, k, err, c.bucket, c.key)
		}
	}
}

func TestStage(t *testing.T) {
	store := newMemBucket(map[string]string{
		"media/jobs/42/script.json":                 `{"scenes":[]}`,
		"media/jobs/42/images/scene_1.png":          "png",
		"media/jobs/42/images/scene_2.png":          "png",
		"media/jobs/42/audio/scene_1.mp3":           "mp3",
		"media/jobs/42/music/background_music.flac": "flac",
		"media/jobs/42/notes/readme.txt":            "ignored",
		"media/jobs/42/images/":                     "",
		"media/jobs/43/script.json":                 "other job",
	})
	dest := t.TempDir()

	st, err := Stage(context.Background(), store, "s3://media/jobs/42", dest, 2)
	if err != nil {
		t.Fatalf("Stage error: %v", err)
	}
	if st.Files != 5 {
		t.Fatalf("Files = %d; want 5", st.Files)
	}
	for _, p := range []string{
		st.ScriptPath,
		filepath.Join(st.ImagesDir, "scene_1.png"),
		filepath.Join(st.ImagesDir, "scene_2.png"),
		filepath.Join(st.AudioDir, "scene_1.mp3"),
		filepath.Join(st.MusicDir, "background_music.flac"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("staged file missing: %v", err)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "notes")); !os.IsNotExist(err) {
		t.Fatalf("unrelated key staged")
	}
	got, _ := os.ReadFile(st.ScriptPath)
	if string(got) != `{"scenes":[]}` {
		t.Fatalf("script content = %q", got)
	}
}

func TestStageErrors(t *testing.T) {
	if _, err := Stage(context.Background(), newMemBucket(nil), "s3://media/jobs/1/", t.TempDir(), 1); err == nil {
		t.Fatalf("expected error when script.json is missing")
	}

	store := newMemBucket(map[string]string{
		"media/p/script.json":        "{}",
		"media/p/images/scene_1.png": "png",
	})
	store.getErr = errors.New("connection reset")
	if _, err := Stage(context.Background(), store, "s3://media/p/", t.TempDir(), 1); err == nil {
		t.Fatalf("expected download error to surface")
	}
}

func TestStagedPath(t *testing.T) {
	cases := []struct {
		rel  string
		want string
		ok   bool
	}{
		{"script.json", "script.json", true},
		{"images/scene_3.png", filepath.Join("images", "scene_3.png"), true},
		{"audio/../../etc/passwd", "", false},
		{"images/", "", false},
		{"images/nested/scene_1.png", "", false},
		{"other.json", "", false},
	}
	for _, c := range cases {
		got, ok := stagedPath(c.rel)
		if ok != c.ok || got != c.want {
			t.Fatalf("stagedPath(%q) = %q, %v; want %q, %v", c.rel, got, ok, c.want, c.ok)
		}
	}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "final.mp4")
	if err := os.WriteFile(local, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	store := newMemBucket(nil)

	if err := Upload(context.Background(), store, local, "s3://media/renders/"); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if string(store.objects["media/renders/final.mp4"]) != "video" {
		t.Fatalf("object not written under directory key: %v", store.objects)
	}
	if err := Upload(context.Background(), store, local, "s3://media/renders/ep1.mp4"); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if _, ok := store.objects["media/renders/ep1.mp4"]; !ok {
		t.Fatalf("object not written under explicit key")
	}
}
