package orchestrator

import (
	"context"
)

// EndSentinel marks end-of-turn on the TTS text queue. Every chunk
// enqueued before it belongs to the same session.
const EndSentinel = "[[END]]"

// FrameSize is the per-channel sample count of one capture period.
const FrameSize = 256

// CaptureChannels is the interleaved channel count of the raw capture
// stream: 8 mics, 1 loopback reference, 1 padding.
const CaptureChannels = 10

// VADFrameSamples is the fixed VAD frame length: 20ms at 16kHz.
const VADFrameSamples = 320

const (
	// SampleRate of the capture path.
	SampleRate = 16000
	// MaxUtteranceSamples is the hard cap on one utterance (8s).
	MaxUtteranceSamples = SampleRate * 8
	// MinUtteranceSamples is the shortest buffer worth dispatching (0.3s).
	MinUtteranceSamples = 4800
	// MinASRSeconds drops post-segmentation utterances shorter than this.
	MinASRSeconds = 0.5
	// PrerollSamples bounds the sliding pre-trigger window.
	PrerollSamples = 8000
)

// AEC is the boundary to the native echo canceller. Process consumes one
// interleaved 10-channel frame and returns a beamformed mono frame plus
// the direction of arrival. ok=false means the frame could not be
// processed and the caller should fall back to the first mic channel.
type AEC interface {
	Process(raw []int16) (clean []int16, doa int, ok bool)
}

// VAD classifies one 320-sample frame as speech or not.
type VAD interface {
	IsSpeech(frame []int16) bool
}

// ASRProvider turns one utterance of PCM into text. An empty string is a
// valid result.
type ASRProvider interface {
	Recognize(ctx context.Context, pcm []byte) (string, error)
}

// LLMProvider streams a completion. onDelta is called for every text
// delta in order; Stream returns the accumulated full text.
type LLMProvider interface {
	Stream(ctx context.Context, prompt string, enableSearch bool, onDelta func(delta string) error) (string, error)
}

// TTSStream is one open upstream synthesis stream.
type TTSStream interface {
	// Send pushes one text chunk (continue-task).
	Send(ctx context.Context, text string) error
	// Finish signals end of input (finish-task) and waits for the
	// receiver to drain.
	Finish(ctx context.Context) error
	// Close aborts the stream.
	Close() error
}

// TTSProvider opens synthesis streams. onAudio receives PCM frames in
// order; a nil/empty slice marks end of stream. Open returns once the
// upstream task has started.
type TTSProvider interface {
	Open(ctx context.Context, onAudio func(pcm []byte)) (TTSStream, error)
}

// MusicController is the slice of the music manager the orchestrator
// needs. Implemented by music.Manager.
type MusicController interface {
	Duck()
	Unduck()
	Stop()
	IsPlaying() bool
	SearchAndPlay(query string) bool
}

// VolumeHandler recognizes and executes spoken volume commands. Returns
// true when the text was a volume command (whether or not the mixer call
// succeeded).
type VolumeHandler interface {
	Handle(text string, ttsBusy, musicBusy bool, speak func(ack string)) bool
}
