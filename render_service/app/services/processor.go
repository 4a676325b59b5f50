package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyreel/common"
	"storyreel/config"
	"storyreel/jobs"
	"storyreel/logging"
	"storyreel/script"
	"storyreel/shared/types"
	"storyreel/video"
)

// Renderer is the part of video.Renderer the processor drives.
type Renderer interface {
	RenderVideo(ctx context.Context, s *script.Script, imagesDir, audioDir, musicPath, outputPath string) (*video.Result, error)
}

// RenderProcessor turns render requests into videos and tracks them as jobs.
type RenderProcessor struct {
	cfg      *config.Config
	renderer Renderer
	store    jobs.Store
	objects  common.ObjectStore
	log      logging.Logger
	sem      chan struct{}
}

// NewRenderProcessor wires a processor. objects may be nil, in which case
// requests with remote artifacts are rejected.
func NewRenderProcessor(cfg *config.Config, renderer Renderer, store jobs.Store, objects common.ObjectStore, log logging.Logger) *RenderProcessor {
	if store == nil {
		store = jobs.NewMemoryStore()
	}
	return &RenderProcessor{
		cfg:      cfg,
		renderer: renderer,
		store:    store,
		objects:  objects,
		log:      logging.OrNop(log),
		sem:      make(chan struct{}, config.MaxConcurrentRenders),
	}
}

// JobID returns the request's explicit id or its fingerprint.
func (p *RenderProcessor) JobID(req *types.RenderRequest) (string, error) {
	if req.ID != "" {
		return req.ID, nil
	}
	var (
		source []byte
		err    error
	)
	switch {
	case req.ArtifactsURI != "":
		source = []byte(req.ArtifactsURI)
	case req.Script != nil:
		source, err = json.Marshal(req.Script)
	default:
		source, err = os.ReadFile(req.ScriptPath)
	}
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	return jobs.Fingerprint(source, req.OutputPath), nil
}

// Job looks up a job record.
func (p *RenderProcessor) Job(ctx context.Context, id string) (*jobs.Job, error) {
	return p.store.Get(ctx, id)
}

// Submit records the request as queued and renders it in the background.
// A request that is already queued, rendering or done is not started again.
func (p *RenderProcessor) Submit(ctx context.Context, req types.RenderRequest) (*jobs.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := p.JobID(&req)
	if err != nil {
		return nil, err
	}
	req.ID = id

	if existing, err := p.store.Get(ctx, id); err == nil && existing.Status != jobs.StatusFailed {
		p.log.Infow("render already submitted", "job", id, "status", existing.Status)
		return existing, nil
	}

	job := &jobs.Job{ID: id, Status: jobs.StatusQueued, OutputPath: req.OutputPath, OutputKey: req.OutputKey}
	if err := p.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("queue job %s: %w", id, err)
	}

	go func() {
		if _, err := p.Process(context.Background(), req); err != nil {
			p.log.Errorw("background render failed", "job", id, "error", err)
		}
	}()
	return job, nil
}

// Process renders one request synchronously. A request whose job is already
// done returns a copy marked skipped-duplicate without rendering.
func (p *RenderProcessor) Process(ctx context.Context, req types.RenderRequest) (*jobs.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := p.JobID(&req)
	if err != nil {
		return nil, err
	}
	log := p.log

	// Each call locks under its own token, so a redelivered copy of a request
	// in flight gets ErrLocked like any other writer.
	token := uuid.NewString()
	if err := p.store.Lock(ctx, req.OutputPath, token, config.LockTTL); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	defer func() {
		if err := p.store.Unlock(context.Background(), req.OutputPath, token); err != nil {
			log.Warnw("failed to release output lock", "job", id, "error", err)
		}
	}()

	// Checked under the lock so a render finishing elsewhere is seen.
	if existing, err := p.store.Get(ctx, id); err == nil && existing.Status == jobs.StatusDone {
		log.Infow("render already done, skipping", "job", id, "output", existing.OutputPath)
		dup := *existing
		dup.Status = jobs.StatusSkippedDuplicate
		return &dup, nil
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	job := &jobs.Job{ID: id, Status: jobs.StatusRendering, OutputPath: req.OutputPath, OutputKey: req.OutputKey}
	p.save(ctx, job)
	log.Infow("render started", "job", id, "output", req.OutputPath)

	res, err := p.render(ctx, id, req)
	if err != nil {
		job.Status = jobs.StatusFailed
		job.Error = err.Error()
		p.save(ctx, job)
		return job, err
	}

	job.Status = jobs.StatusDone
	job.Clips = res.Clips
	job.Duration = res.Duration
	p.save(ctx, job)
	log.Infow("render finished", "job", id, "output", req.OutputPath, "clips", res.Clips, "duration", res.Duration)
	return job, nil
}

func (p *RenderProcessor) render(ctx context.Context, id string, req types.RenderRequest) (*video.Result, error) {
	s := req.Script
	scriptPath, imagesDir, audioDir, musicPath := req.ScriptPath, req.ImagesDir, req.AudioDir, req.MusicPath

	if req.ArtifactsURI != "" {
		if p.objects == nil {
			return nil, errors.New("artifacts_uri given but no object store is configured")
		}
		work := filepath.Join(p.cfg.Paths.Work, id)
		defer os.RemoveAll(work)

		st, err := common.Stage(ctx, p.objects, req.ArtifactsURI, work, config.StagingConcurrency)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", req.ArtifactsURI, err)
		}
		p.log.Infow("artifacts staged", "job", id, "files", st.Files, "dir", work)
		s = nil
		scriptPath, imagesDir, audioDir = st.ScriptPath, st.ImagesDir, st.AudioDir
		musicPath = FindMusic(st.MusicDir, st.Root)
	}

	if s == nil {
		loaded, err := script.Load(scriptPath)
		if err != nil {
			return nil, err
		}
		s = loaded
	}

	res, err := p.renderer.RenderVideo(ctx, s, imagesDir, audioDir, musicPath, req.OutputPath)
	if err != nil {
		return nil, err
	}

	if req.OutputKey != "" {
		if p.objects == nil {
			return nil, errors.New("output_key given but no object store is configured")
		}
		if err := common.Upload(ctx, p.objects, req.OutputPath, req.OutputKey); err != nil {
			return nil, err
		}
		p.log.Infow("video uploaded", "job", id, "key", req.OutputKey)
	}
	return res, nil
}

func (p *RenderProcessor) save(ctx context.Context, job *jobs.Job) {
	job.UpdatedAt = time.Now()
	if err := p.store.Put(ctx, job); err != nil {
		p.log.Warnw("failed to record job status", "job", job.ID, "status", job.Status, "error", err)
	}
}

// ProcessFromDirectory renders every project under inputDir. A project is a
// directory holding script.json with images/, audio/ and optionally music/.
// inputDir may itself be a project, and loose *.json files are read as
// render requests.
func (p *RenderProcessor) ProcessFromDirectory(ctx context.Context, inputDir string) error {
	reqs, err := p.collect(inputDir)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		p.log.Infow("nothing to render", "dir", inputDir)
		return nil
	}
	p.log.Infow("batch render starting", "dir", inputDir, "videos", len(reqs))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, req types.RenderRequest) {
			defer wg.Done()
			job, err := p.Process(ctx, req)
			if err != nil {
				p.log.Errorw("batch render failed", "n", idx+1, "of", len(reqs), "output", req.OutputPath, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", req.OutputPath, err))
				mu.Unlock()
				return
			}
			p.log.Infow("batch render done", "n", idx+1, "of", len(reqs), "output", req.OutputPath, "status", job.Status)
		}(i, req)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d renders failed: %w", len(errs), len(reqs), errors.Join(errs...))
	}
	p.log.Infow("all videos rendered", "videos", len(reqs))
	return nil
}

func (p *RenderProcessor) collect(inputDir string) ([]types.RenderRequest, error) {
	if isFile(filepath.Join(inputDir, config.ScriptFile)) {
		return []types.RenderRequest{p.projectRequest(inputDir, filepath.Join(p.cfg.Paths.Output, config.FinalVideoName))}, nil
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var reqs []types.RenderRequest
	for _, e := range entries {
		path := filepath.Join(inputDir, e.Name())
		switch {
		case e.IsDir() && isFile(filepath.Join(path, config.ScriptFile)):
			reqs = append(reqs, p.projectRequest(path, filepath.Join(p.cfg.Paths.Output, e.Name()+".mp4")))
		case !e.IsDir() && strings.HasSuffix(e.Name(), ".json"):
			req, err := readRequest(path)
			if err != nil {
				p.log.Warnw("skipping unreadable request file", "path", path, "error", err)
				continue
			}
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func (p *RenderProcessor) projectRequest(dir, output string) types.RenderRequest {
	return types.RenderRequest{
		ScriptPath: filepath.Join(dir, config.ScriptFile),
		ImagesDir:  filepath.Join(dir, config.ImagesSubdir),
		AudioDir:   filepath.Join(dir, config.AudioSubdir),
		MusicPath:  FindMusic(filepath.Join(dir, config.MusicSubdir), dir),
		OutputPath: output,
	}
}

func readRequest(path string) (types.RenderRequest, error) {
	var req types.RenderRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, err
	}
	return req, req.Validate()
}

// FindMusic returns the first conventional music file found in dirs, or ""
// when there is none.
func FindMusic(dirs ...string) string {
	for _, dir := range dirs {
		for _, name := range config.MusicCandidates {
			if p := filepath.Join(dir, name); isFile(p) {
				return p
			}
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
