package config

import "time"

// Video Output Constants
const (
	// VideoWidth is the output video width
	VideoWidth = 1920

	// VideoHeight is the output video height
	VideoHeight = 1080

	// VideoFPS is the fixed output frame rate
	VideoFPS = 24

	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// AudioCodec is the audio encoding codec
	AudioCodec = "aac"

	// AudioBitrate is the audio quality bitrate
	AudioBitrate = "192k"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"

	// MusicGain is the background music volume relative to narration
	MusicGain = 0.3
)

// Asset Naming Constants
const (
	// ScenePrefix is the filename prefix for per-scene artifacts (scene_1.png)
	ScenePrefix = "scene"

	// ImageExtension is the per-scene image extension
	ImageExtension = "png"

	// AudioExtension is the per-scene narration extension
	AudioExtension = "mp3"

	// AddressingIndex resolves scene_{idx+1} directly
	AddressingIndex = "index"

	// AddressingClosest resolves the numerically closest scene_{N}
	AddressingClosest = "closest"
)

// Directory Constants
const (
	// InputDir holds project directories and render request JSON files for batch mode
	InputDir = "input"

	// OutputDir is the directory for rendered videos
	OutputDir = "output"

	// WorkDir is where remote artifacts are staged
	WorkDir = "work"

	// ImagesSubdir, AudioSubdir and MusicSubdir are the conventional layout
	// of a staged job directory
	ImagesSubdir = "images"
	AudioSubdir  = "audio"
	MusicSubdir  = "music"

	// ScriptFile is the conventional script name inside a job directory
	ScriptFile = "script.json"

	// FinalVideoName is the output name when the input dir is itself a project
	FinalVideoName = "final_video.mp4"
)

// MusicCandidates are tried in order inside a music directory
var MusicCandidates = []string{"background_music.flac", "background_music.mp3"}

// Processing Constants
const (
	// MaxConcurrentRenders limits the number of renders running at once in batch mode
	MaxConcurrentRenders = 2

	// JobTTL is how long job status records are kept
	JobTTL = 24 * time.Hour

	// LockTTL bounds how long an output path stays locked if a worker dies
	LockTTL = 2 * time.Hour

	// StagingConcurrency limits parallel artifact downloads
	StagingConcurrency = 4
)
