package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aibox-labs/aibox-orchestrator/pkg/metrics"
)

// ttsSendPacing spaces continue-task frames so the upstream synthesizer
// keeps a steady input rhythm.
const ttsSendPacing = 50 * time.Millisecond

// RunTTSManager is the single consumer of the text queue. It keeps at
// most one upstream synthesis stream, bound to the session that opened
// it; a session change or cancellation tears the stream down before the
// next chunk is considered.
func (o *Orchestrator) RunTTSManager(ctx context.Context) {
	var stream TTSStream
	var localSessionID string

	closeStream := func() {
		if stream != nil {
			_ = stream.Close()
			stream = nil
		}
	}
	defer closeStream()

	for {
		var msg string
		select {
		case <-ctx.Done():
			return
		case <-o.state.Done():
			return
		case msg = <-o.state.TTSText():
		}

		sessCtx, sessID := o.state.Session()

		if localSessionID != sessID {
			closeStream()
			localSessionID = sessID
		}

		if sessCtx.Err() != nil {
			closeStream()
			continue
		}

		if msg == EndSentinel {
			if stream != nil {
				if err := stream.Finish(sessCtx); err != nil {
					o.log.Warn("tts finish failed", zap.Error(err))
				}
				stream = nil
			}
			continue
		}

		if strings.TrimSpace(msg) == "" {
			continue
		}

		if stream == nil {
			opened := time.Now()
			st, err := o.tts.Open(sessCtx, o.ttsAudioHook(sessCtx, opened))
			if err != nil {
				o.log.Warn("tts open failed, dropping chunk", zap.Error(err))
				metrics.Errors.WithLabelValues("tts").Inc()
				continue
			}
			stream = st
			time.Sleep(ttsSendPacing)
		}

		if err := stream.Send(sessCtx, msg); err != nil {
			o.log.Warn("tts send failed", zap.Error(err))
			metrics.Errors.WithLabelValues("tts").Inc()
			closeStream()
			continue
		}
		time.Sleep(ttsSendPacing)
	}
}

// ttsAudioHook routes received PCM into the sink queue for the session
// that opened the stream. A nil/empty frame is the upstream end-of-audio
// and becomes the sink's empty-blob sentinel.
func (o *Orchestrator) ttsAudioHook(sessCtx context.Context, opened time.Time) func(pcm []byte) {
	first := false
	return func(pcm []byte) {
		if sessCtx.Err() != nil {
			return
		}
		if len(pcm) == 0 {
			o.state.EnqueuePCM([]byte{})
			return
		}
		if !first {
			first = true
			lat := time.Since(opened)
			metrics.TTSFirstAudio.Observe(lat.Seconds())
			o.log.Info("tts first audio", zap.Duration("latency", lat))
		}
		o.state.EnqueuePCM(pcm)
	}
}
