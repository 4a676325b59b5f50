// Command render assembles one video from a script and local artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"storyreel/config"
	"storyreel/logging"
	"storyreel/render_service/app/services"
	"storyreel/script"
	"storyreel/video"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file (optional)")
	scriptPath := flag.String("script", filepath.Join(config.InputDir, config.ScriptFile), "Scene script JSON")
	imagesDir := flag.String("images", filepath.Join(config.InputDir, config.ImagesSubdir), "Directory of scene_N.png images")
	audioDir := flag.String("audio", filepath.Join(config.InputDir, config.AudioSubdir), "Directory of scene_N.mp3 narration")
	musicPath := flag.String("music", "", "Background music file (default: look in the music dir)")
	output := flag.String("out", filepath.Join(config.OutputDir, config.FinalVideoName), "Output video path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(true)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	s, err := script.Load(*scriptPath)
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	music := *musicPath
	if music == "" {
		root := filepath.Dir(*scriptPath)
		music = services.FindMusic(filepath.Join(root, config.MusicSubdir), root)
	}

	renderer, err := video.NewRenderer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := renderer.RenderVideo(ctx, s, *imagesDir, *audioDir, music, *output)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	log.Printf("✅ Video saved: %s (%d clips, %.1fs)", res.OutputPath, res.Clips, res.Duration)
	return nil
}
