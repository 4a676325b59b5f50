// Package jobs tracks render jobs and serialises writers per output path.
package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"time"
)

var (
	// ErrLocked means another render holds the output path.
	ErrLocked = errors.New("output path is locked by another render")
	// ErrNotFound means no record exists for the job id.
	ErrNotFound = errors.New("job not found")
)

// Status is a job's lifecycle stage.
type Status string

const (
	StatusQueued           Status = "queued"
	StatusRendering        Status = "rendering"
	StatusDone             Status = "done"
	StatusFailed           Status = "failed"
	StatusSkippedDuplicate Status = "skipped-duplicate"
)

// Job is the stored record of one render request.
type Job struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	OutputPath string    `json:"output_path"`
	OutputKey  string    `json:"output_key,omitempty"`
	Clips      int       `json:"clips,omitempty"`
	Duration   float64   `json:"duration_sec,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the job will not change again.
func (j *Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// Store persists job records and output locks.
type Store interface {
	Get(ctx context.Context, id string) (*Job, error)
	Put(ctx context.Context, job *Job) error
	// Lock claims outputPath for owner until ttl passes or Unlock is called.
	// It returns ErrLocked while any unexpired lease exists, including one
	// held by the same owner.
	Lock(ctx context.Context, outputPath, owner string, ttl time.Duration) error
	// Unlock releases outputPath if owner still holds it.
	Unlock(ctx context.Context, outputPath, owner string) error
}

// Fingerprint is the stable job id for a render source (script JSON or an
// artifact URI) written to outputPath. Redelivered requests map to the same id.
func Fingerprint(source []byte, outputPath string) string {
	h := sha256.New()
	h.Write(source)
	h.Write([]byte{'|'})
	h.Write([]byte(filepath.Clean(outputPath)))
	return hex.EncodeToString(h.Sum(nil))
}

func lockName(outputPath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(outputPath)))
	return hex.EncodeToString(sum[:16])
}
