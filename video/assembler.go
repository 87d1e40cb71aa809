package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrAssemblyFailed is returned when ffmpeg cannot be located or exits
// non-zero. Assembly has no fallback; this is fatal to the run.
var ErrAssemblyFailed = errors.New("video assembly failed")

const (
	frameDurationSec = 3
	errSnippetLimit  = 400
)

// Assembler combines still frames and one audio track into a single video.
type Assembler interface {
	Assemble(ctx context.Context, frames [][]byte, audio []byte, outputPath string) (string, error)
}

// FFmpeg assembles a 1080x1920 slideshow video by shelling out to ffmpeg.
type FFmpeg struct{}

var _ Assembler = (*FFmpeg)(nil)

// NewFFmpeg creates an ffmpeg-backed Assembler.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{}
}

// Assemble writes frames and audio to a scoped workspace, builds a concat
// manifest, and renders outputPath. The workspace is removed on every exit
// path. Total duration is bounded by the shorter of slideshow and audio.
func (f *FFmpeg) Assemble(ctx context.Context, frames [][]byte, audio []byte, outputPath string) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("%w: no frames to assemble", ErrAssemblyFailed)
	}

	tmpDir, err := os.MkdirTemp("", "brainrot-")
	if err != nil {
		return "", fmt.Errorf("%w: create workspace: %v", ErrAssemblyFailed, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			log.Printf("[video] ⚠️ workspace cleanup failed: %v", rmErr)
		}
	}()

	framePaths := make([]string, 0, len(frames))
	for i, frame := range frames {
		p := filepath.Join(tmpDir, fmt.Sprintf("frame_%03d.jpg", i))
		if err := os.WriteFile(p, frame, 0o644); err != nil {
			return "", fmt.Errorf("%w: write frame %d: %v", ErrAssemblyFailed, i, err)
		}
		framePaths = append(framePaths, p)
	}

	audioPath := filepath.Join(tmpDir, "narration.mp3")
	if err := os.WriteFile(audioPath, audio, 0o644); err != nil {
		return "", fmt.Errorf("%w: write audio: %v", ErrAssemblyFailed, err)
	}

	// Concat manifest: each frame held for a fixed slideshow duration.
	var list strings.Builder
	for _, p := range framePaths {
		fmt.Fprintf(&list, "file '%s'\nduration %d\n", p, frameDurationSec)
	}
	listPath := filepath.Join(tmpDir, "images.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("%w: write concat list: %v", ErrAssemblyFailed, err)
	}

	log.Printf("[video] Assembling %d frame(s) into %s", len(frames), outputPath)

	// 9:16 portrait for Shorts; -shortest bounds duration to the shorter input.
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-i", audioPath,
		"-vf", "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,fps=30",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-shortest",
		"-movflags", "+faststart",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: ffmpeg: %v: %s", ErrAssemblyFailed, err, tail(stderr.String(), errSnippetLimit))
	}

	log.Printf("[video] ✅ Video assembled: %s", outputPath)
	return outputPath, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
