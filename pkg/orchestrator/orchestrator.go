package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/aibox-labs/aibox-orchestrator/pkg/config"
)

// Orchestrator wires the capture pipeline, the intent router and the
// output side together around the shared State.
type Orchestrator struct {
	cfg   config.Config
	log   *zap.Logger
	state *State

	asr    ASRProvider
	llm    LLMProvider
	tts    TTSProvider
	music  MusicController
	volume VolumeHandler

	aec     AEC
	vad     VAD
	capture Source
}

// Deps are the collaborators the orchestrator drives.
type Deps struct {
	ASR     ASRProvider
	LLM     LLMProvider
	TTS     TTSProvider
	Music   MusicController
	Volume  VolumeHandler
	AEC     AEC
	VAD     VAD
	Capture Source
}

// New builds the orchestrator. Missing AEC degrades to first-channel
// passthrough; a VAD engine is mandatory, the segmenter cannot run
// without one.
func New(cfg config.Config, log *zap.Logger, state *State, deps Deps) *Orchestrator {
	aec := deps.AEC
	if aec == nil {
		log.Warn("no echo canceller, degrading to first mic channel")
		aec = PassthroughAEC{}
	}
	if deps.VAD == nil && deps.Capture != nil {
		log.Fatal("no VAD engine configured, the segmenter cannot run")
	}
	return &Orchestrator{
		cfg:     cfg,
		log:     log,
		state:   state,
		asr:     deps.ASR,
		llm:     deps.LLM,
		tts:     deps.TTS,
		music:   deps.Music,
		volume:  deps.Volume,
		aec:     aec,
		vad:     deps.VAD,
		capture: deps.Capture,
	}
}

// State exposes the shared state for wiring and tests.
func (o *Orchestrator) State() *State {
	return o.state
}

// Run launches the long-lived workers and blocks until ctx ends or an
// exit command flips the shutdown flag. Capture ending on its own does
// not take the box down.
func (o *Orchestrator) Run(ctx context.Context) error {
	go o.RunAudioSink(ctx)
	go o.RunTTSManager(ctx)
	go o.RunIdleMonitor(ctx)
	if o.capture != nil {
		go func() {
			if err := o.RunCaptureLoop(ctx); err != nil && ctx.Err() == nil {
				o.log.Warn("capture loop ended", zap.Error(err))
			}
		}()
	}

	select {
	case <-ctx.Done():
		o.PerformStop()
		return ctx.Err()
	case <-o.state.Done():
		return nil
	}
}
