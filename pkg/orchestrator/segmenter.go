package orchestrator

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/aibox-labs/aibox-orchestrator/pkg/audio"
)

// SegmenterHooks are the segmenter's outputs. All callbacks run on the
// capture goroutine.
type SegmenterHooks struct {
	// Duck is invoked once per segment when sustained speech begins.
	Duck func()
	// Unduck is invoked when a segment closes without a dispatchable
	// utterance.
	Unduck func()
	// Utterance receives a snapshot of a closed utterance, bounded to
	// [MinUtteranceSamples, MaxUtteranceSamples].
	Utterance func(pcm []int16)
}

// Segmenter turns a stream of 20ms VAD frames into utterances. It keeps
// a sliding pre-roll window while idle so the dispatched utterance
// carries the audio just before the trigger; the ASR front boundary is
// noticeably better for it.
type Segmenter struct {
	vad   VAD
	hooks SegmenterHooks

	duckFrames    int
	triggerFrames int
	silenceFrames int

	speechCount  int
	silenceCount int
	triggered    bool
	ducked       bool
	buf          []int16
}

// NewSegmenter creates a segmenter with the given frame thresholds.
func NewSegmenter(vad VAD, duckFrames, triggerFrames, silenceFrames int, hooks SegmenterHooks) *Segmenter {
	return &Segmenter{
		vad:           vad,
		hooks:         hooks,
		duckFrames:    duckFrames,
		triggerFrames: triggerFrames,
		silenceFrames: silenceFrames,
		buf:           make([]int16, 0, MaxUtteranceSamples),
	}
}

// Push feeds one 320-sample frame through the state machine.
func (g *Segmenter) Push(frame []int16) {
	if g.vad.IsSpeech(frame) {
		g.speechCount++
		g.silenceCount = 0
	} else {
		g.silenceCount++
		g.speechCount = 0
	}

	if g.speechCount > g.duckFrames && !g.ducked {
		g.ducked = true
		if g.hooks.Duck != nil {
			g.hooks.Duck()
		}
	}

	if g.speechCount > g.triggerFrames && !g.triggered {
		g.triggered = true
	}

	if g.triggered {
		g.buf = append(g.buf, frame...)
		if g.silenceCount > g.silenceFrames || len(g.buf) >= MaxUtteranceSamples {
			g.closeSegment()
		}
		return
	}

	// Idle: keep a bounded pre-roll so the trigger doesn't clip the
	// first syllables.
	if len(g.buf) > PrerollSamples {
		g.buf = g.buf[VADFrameSamples:]
	}
	g.buf = append(g.buf, frame...)
}

func (g *Segmenter) closeSegment() {
	if len(g.buf) >= MinUtteranceSamples {
		snapshot := make([]int16, len(g.buf))
		copy(snapshot, g.buf)
		if g.hooks.Utterance != nil {
			g.hooks.Utterance(snapshot)
		}
	} else if g.hooks.Unduck != nil {
		g.hooks.Unduck()
	}
	g.buf = g.buf[:0]
	g.triggered = false
	g.ducked = false
	g.silenceCount = 0
}

// RunCaptureLoop drives the capture source: raw frame → AEC → 20ms
// repacking → segmentation. Returns when the source stops producing
// full frames; the rest of the box stays alive.
func (o *Orchestrator) RunCaptureLoop(ctx context.Context) error {
	reader, err := o.capture.Start(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()
	o.log.Info("microphone capture started")

	seg := NewSegmenter(o.vad, o.cfg.SegDuckFrames, o.cfg.SegTriggerFrames, o.cfg.SegSilenceFrames, SegmenterHooks{
		Duck: func() {
			if o.music != nil {
				o.music.Duck()
			}
		},
		Unduck: func() {
			if o.music != nil {
				o.music.Unduck()
			}
		},
		Utterance: func(pcm []int16) {
			go o.HandleUtterance(pcm)
		},
	})

	frameBytes := FrameSize * CaptureChannels * 2
	raw := make([]byte, frameBytes)
	vadAcc := make([]int16, 0, 4*VADFrameSamples)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.state.Done():
			return nil
		default:
		}

		if _, err := io.ReadFull(reader, raw); err != nil {
			o.log.Warn("capture ended", zap.Error(err))
			return ErrCaptureClosed
		}

		samples := audio.BytesToSamples(raw)
		clean, _, ok := o.aec.Process(samples)
		if !ok {
			clean = audio.FirstChannel(samples, CaptureChannels)
		}
		vadAcc = append(vadAcc, clean...)

		for len(vadAcc) >= VADFrameSamples {
			seg.Push(vadAcc[:VADFrameSamples])
			vadAcc = vadAcc[VADFrameSamples:]
		}
	}
}
