// Package assets locates per-scene artifacts on disk.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Mode selects how a numeric key maps to a file.
type Mode int

const (
	// ByIndex looks up {prefix}_{key+1}.{ext} directly.
	ByIndex Mode = iota
	// Closest picks the {prefix}_{N}.{ext} whose N is nearest to key.
	Closest
)

// ParseMode maps a config value ("index", "closest") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "index":
		return ByIndex, nil
	case "closest":
		return Closest, nil
	default:
		return ByIndex, fmt.Errorf("unknown addressing mode %q", s)
	}
}

func (m Mode) String() string {
	if m == Closest {
		return "closest"
	}
	return "index"
}

// Resolver finds scene artifacts. The zero value resolves by index only.
type Resolver struct {
	Mode Mode
	// Fallback enables a closest-match search keyed by scene number when
	// the by-index lookup misses.
	Fallback bool
}

// Resolve finds the artifact for a zero-based scene index using the
// configured mode. ok is false when nothing suitable exists.
func (r Resolver) Resolve(folder string, index int, prefix, ext string) (path string, ok bool) {
	if r.Mode == Closest {
		return ResolveClosest(folder, index+1, prefix, ext)
	}
	if p, ok := ResolveIndex(folder, index, prefix, ext); ok {
		return p, true
	}
	if r.Fallback {
		return ResolveClosest(folder, index+1, prefix, ext)
	}
	return "", false
}

// ResolveIndex returns folder/{prefix}_{index+1}.{ext} when it is a regular file.
func ResolveIndex(folder string, index int, prefix, ext string) (string, bool) {
	p := filepath.Join(folder, fmt.Sprintf("%s_%d.%s", prefix, index+1, ext))
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}

// ResolveClosest scans folder for {prefix}_{N}.{ext} and returns the file
// whose N is numerically closest to key. Ties go to the smaller N. An
// unreadable folder or no matching file reports not-found.
func ResolveClosest(folder string, key int, prefix, ext string) (string, bool) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", false
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `_(\d+)\.` + regexp.QuoteMeta(ext) + "$")

	type candidate struct {
		n    int
		name string
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, candidate{n: n, name: e.Name()})
	}
	if len(found) == 0 {
		return "", false
	}

	// scene_05 and scene_5 parse to the same N; the name breaks the tie.
	sort.Slice(found, func(i, j int) bool {
		if found[i].n != found[j].n {
			return found[i].n < found[j].n
		}
		return found[i].name < found[j].name
	})

	best := found[0]
	for _, c := range found[1:] {
		if abs(c.n-key) < abs(best.n-key) {
			best = c
		}
	}
	return filepath.Join(folder, best.name), true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
