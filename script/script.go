// Package script holds the scene script document consumed by the renderer.
package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoJSON is returned when free-form text holds no JSON document.
var ErrNoJSON = errors.New("no JSON document found")

// Script is the root document produced by the script source.
type Script struct {
	VideoTitle            string  `json:"video_title"`
	Scenes                []Scene `json:"scenes"`
	OverallVideoMood      string  `json:"overall_video_mood"`
	BackgroundMusicPrompt string  `json:"background_music_prompt"`
}

// Scene is one timeline segment. Only Timestamp and
// SuggestedTransitionEffect are read by the renderer.
type Scene struct {
	Timestamp                 string  `json:"timestamp"`
	Voiceover                 string  `json:"voiceover"`
	SceneDescription          string  `json:"scene_description"`
	CharacterObjectDetails    string  `json:"character_object_details"`
	ShotTypeCameraAngle       string  `json:"shot_type_camera_angle"`
	MoodEmotion               string  `json:"mood_emotion"`
	SuggestedTransitionEffect *string `json:"suggested_transition_effect,omitempty"`
}

// DefaultTransition is used when a scene carries no transition hint.
const DefaultTransition = "fade-in"

// TransitionLabel returns the lowercased transition hint, defaulting to
// fade-in when the field is absent.
func (s Scene) TransitionLabel() string {
	if s.SuggestedTransitionEffect == nil {
		return DefaultTransition
	}
	return strings.ToLower(strings.TrimSpace(*s.SuggestedTransitionEffect))
}

// NominalDuration is end minus start of the "MM:SS - MM:SS" timestamp, in
// seconds. It is advisory; the rendered length comes from the narration.
func (s Scene) NominalDuration() (float64, error) {
	parts := strings.Split(s.Timestamp, "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("timestamp %q: want \"MM:SS - MM:SS\"", s.Timestamp)
	}
	start, err := parseMinSec(parts[0])
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", s.Timestamp, err)
	}
	end, err := parseMinSec(parts[1])
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", s.Timestamp, err)
	}
	return float64(end - start), nil
}

func parseMinSec(s string) (int, error) {
	mm, ss, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, fmt.Errorf("marker %q is not MM:SS", strings.TrimSpace(s))
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("bad minutes in %q", strings.TrimSpace(s))
	}
	sec, err := strconv.Atoi(ss)
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("bad seconds in %q", strings.TrimSpace(s))
	}
	return m*60 + sec, nil
}

// fencePattern matches ```json {...} ``` or ``` {...} ``` blocks.
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Parse decodes a script. Raw JSON is accepted as is; otherwise the first
// fenced JSON block in free-form model output is used.
func Parse(data []byte) (*Script, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return decode(trimmed)
	}
	m := fencePattern.FindSubmatch(data)
	if m == nil {
		return nil, ErrNoJSON
	}
	return decode(m[1])
}

func decode(raw []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("invalid script JSON: %w", err)
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}
