package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"brainrot-pipeline/images"
	"brainrot-pipeline/metadata"
	"brainrot-pipeline/roster"
	"brainrot-pipeline/script"
	"brainrot-pipeline/store"
	"brainrot-pipeline/types"
	"brainrot-pipeline/upload"
	"brainrot-pipeline/video"
	"brainrot-pipeline/voice"
)

// ErrNoFramesGenerated is recorded when every image prompt failed. The run
// fails before voice or assembly are attempted.
var ErrNoFramesGenerated = errors.New("no images could be generated")

const defaultImageDelay = 2 * time.Second

// Orchestrator drives one end-to-end video generation run: admission check,
// input selection, adapter sequencing, ledger updates, and daily analytics.
type Orchestrator struct {
	store     store.Store
	script    script.Generator
	images    images.Generator
	voice     voice.Synthesizer
	assembler video.Assembler
	publisher upload.Publisher

	// ImageDelay paces sequential image requests to respect the provider
	// rate limit. Overridable in tests.
	ImageDelay time.Duration
	// VideoDir is where the assembled video is written before upload.
	VideoDir string

	// Triggers are expected to arrive one at a time, but nothing upstream
	// enforces that; the lock turns a racing second trigger into a busy skip
	// instead of letting it double-spend the daily quota.
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New wires an Orchestrator from its collaborators.
func New(st store.Store, scriptGen script.Generator, imageGen images.Generator,
	voiceGen voice.Synthesizer, assembler video.Assembler, publisher upload.Publisher) *Orchestrator {
	return &Orchestrator{
		store:      st,
		script:     scriptGen,
		images:     imageGen,
		voice:      voiceGen,
		assembler:  assembler,
		publisher:  publisher,
		ImageDelay: defaultImageDelay,
		VideoDir:   os.TempDir(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
}

// Run executes one pipeline run and returns its tagged outcome. A returned
// error means the ledger itself was unusable before any pipeline work;
// adapter failures surface as an OutcomeFailed result, never as an error.
func (o *Orchestrator) Run(ctx context.Context) (types.RunResult, error) {
	if !o.mu.TryLock() {
		return types.RunResult{
			Outcome: types.OutcomeSkipped,
			Message: "a run is already in progress",
		}, nil
	}
	defer o.mu.Unlock()

	settings, err := o.store.LoadRunSettings()
	if err != nil {
		return types.RunResult{}, fmt.Errorf("load settings: %w", err)
	}

	today := o.now().UTC().Format("2006-01-02")
	todayCount, err := o.store.CountCompletedOn(today)
	if err != nil {
		return types.RunResult{}, fmt.Errorf("count today's jobs: %w", err)
	}

	// Admission check: at the cap, the run is a no-op: no job, no counters.
	if todayCount >= settings.VideosPerDay {
		log.Printf("[pipeline] Daily limit reached: %d/%d", todayCount, settings.VideosPerDay)
		return types.RunResult{
			Outcome:    types.OutcomeSkipped,
			TodayCount: todayCount,
			Limit:      settings.VideosPerDay,
			Message:    fmt.Sprintf("Daily limit reached: %d/%d videos already generated today", todayCount, settings.VideosPerDay),
		}, nil
	}

	sel := roster.Pick(o.rng, settings.ContentTypes)
	topic := ""
	if sel.ContentType == types.ContentTop5 {
		topic = sel.Topic
	}

	job := &types.Job{
		ID:        uuid.NewString(),
		Type:      sel.ContentType,
		Status:    types.StatusProcessing,
		Character: sel.Character.Name,
		Topic:     topic,
		CreatedAt: o.now().UTC(),
	}
	if err := o.store.CreateJob(job); err != nil {
		return types.RunResult{}, fmt.Errorf("create job: %w", err)
	}

	log.Printf("[pipeline] 🎬 Starting job %s: %s with %s", job.ID, job.Type, job.Character)

	result, runErr := o.execute(ctx, job, sel, settings)
	if runErr != nil {
		log.Printf("[pipeline] ❌ Job %s failed: %v", job.ID, runErr)
		if err := o.store.FailJob(job.ID, runErr.Error(), o.now().UTC()); err != nil {
			log.Printf("[pipeline] ⚠️ could not record failure for job %s: %v", job.ID, err)
		}
		if err := o.store.IncrementDaily(today, 0, 0, 1); err != nil {
			log.Printf("[pipeline] ⚠️ analytics update failed: %v", err)
		}
		return types.RunResult{
			Outcome: types.OutcomeFailed,
			JobID:   job.ID,
			Error:   runErr.Error(),
		}, nil
	}

	uploaded := 0
	if settings.UploadEnabled {
		uploaded = 1
	}
	if err := o.store.IncrementDaily(today, 1, uploaded, 0); err != nil {
		log.Printf("[pipeline] ⚠️ analytics update failed: %v", err)
	}

	log.Printf("[pipeline] ✅ Job %s completed", job.ID)
	return result, nil
}

// execute runs the generation steps in strict sequence and finalizes the job
// on success. The temporary video file is removed on every path once created.
func (o *Orchestrator) execute(ctx context.Context, job *types.Job, sel roster.Selection, settings types.RunSettings) (types.RunResult, error) {
	// Step 1: script. This adapter degrades locally and never fails.
	log.Printf("[pipeline] Step 1: generating script...")
	text := o.script.Generate(ctx, job.Type, job.Character, sel.Topic)

	// Step 2: images, one prompt at a time. Individual failures just mean
	// fewer frames.
	log.Printf("[pipeline] Step 2: generating images...")
	prompts := roster.ImagePrompts(job.Type, sel.Character)
	var frames [][]byte
	for i, prompt := range prompts {
		frame, err := o.images.Generate(ctx, prompt)
		if err != nil {
			log.Printf("[pipeline] ⚠️ image %d/%d failed: %v", i+1, len(prompts), err)
			continue
		}
		frames = append(frames, frame)
		if err := o.pace(ctx); err != nil {
			return types.RunResult{}, err
		}
	}
	if len(frames) == 0 {
		return types.RunResult{}, ErrNoFramesGenerated
	}

	// Step 3: voice. First adapter failure that aborts the run.
	log.Printf("[pipeline] Step 3: generating voice...")
	audio, err := o.voice.Synthesize(ctx, text, "")
	if err != nil {
		return types.RunResult{}, err
	}

	// Step 4: assemble the video.
	log.Printf("[pipeline] Step 4: creating video...")
	videoPath := filepath.Join(o.VideoDir, job.ID+".mp4")
	defer func() {
		// Cleanup is unconditional: the local file is disposable whether the
		// run succeeded, failed, or never produced it.
		_ = os.Remove(videoPath)
	}()
	if _, err := o.assembler.Assemble(ctx, frames, audio, videoPath); err != nil {
		return types.RunResult{}, err
	}

	// Step 5: metadata.
	title := metadata.Title(o.rng, job.Type, job.Character, sel.Topic)
	description := metadata.Description(job.Character, text)
	tags := metadata.Tags(job.Type, job.Character)

	// Step 6: publish, when enabled.
	var youtubeID, youtubeURL string
	if settings.UploadEnabled {
		log.Printf("[pipeline] Step 5: uploading to YouTube...")
		youtubeID, youtubeURL, err = o.publisher.Publish(ctx, videoPath, title, description, tags)
		if err != nil {
			return types.RunResult{}, err
		}
	}

	if err := o.store.CompleteJob(job.ID, title, description, youtubeID, youtubeURL, o.now().UTC()); err != nil {
		return types.RunResult{}, fmt.Errorf("finalize job: %w", err)
	}

	return types.RunResult{
		Outcome:    types.OutcomeCompleted,
		JobID:      job.ID,
		Title:      title,
		YouTubeURL: youtubeURL,
		Character:  job.Character,
		Type:       job.Type,
	}, nil
}

// pace sleeps the inter-request delay, honoring cancellation.
func (o *Orchestrator) pace(ctx context.Context) error {
	if o.ImageDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(o.ImageDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
