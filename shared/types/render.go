package types

import (
	"errors"
	"strings"

	"storyreel/script"
)

// RenderRequest asks the render service for one video. Artifacts come from
// local directories or from a remote prefix (ArtifactsURI) holding
// script.json, images/, audio/ and music/.
type RenderRequest struct {
	ID           string         `json:"id,omitempty"`
	Script       *script.Script `json:"script,omitempty"`
	ScriptPath   string         `json:"script_path,omitempty"`
	ImagesDir    string         `json:"images_dir,omitempty"`
	AudioDir     string         `json:"audio_dir,omitempty"`
	MusicPath    string         `json:"music_path,omitempty"`
	ArtifactsURI string         `json:"artifacts_uri,omitempty"`
	OutputPath   string         `json:"output_path"`
	// OutputKey, when set, is an s3:// destination for the finished video.
	OutputKey string `json:"output_key,omitempty"`
}

// Validate checks that the request names its inputs and an output.
func (r *RenderRequest) Validate() error {
	if strings.TrimSpace(r.OutputPath) == "" {
		return errors.New("output_path is required")
	}
	if r.OutputKey != "" && !strings.HasPrefix(r.OutputKey, "s3://") {
		return errors.New("output_key must be an s3:// uri")
	}
	if r.ArtifactsURI != "" {
		if !strings.HasPrefix(r.ArtifactsURI, "s3://") {
			return errors.New("artifacts_uri must be an s3:// uri")
		}
		return nil
	}
	if r.Script == nil && r.ScriptPath == "" {
		return errors.New("script or script_path is required")
	}
	if r.ImagesDir == "" || r.AudioDir == "" {
		return errors.New("images_dir and audio_dir are required")
	}
	return nil
}

// RenderResponse is the API reply to a render submission.
type RenderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
