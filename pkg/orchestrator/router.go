package orchestrator

import (
	"strings"

	"go.uber.org/zap"

	"github.com/aibox-labs/aibox-orchestrator/pkg/audio"
	"github.com/aibox-labs/aibox-orchestrator/pkg/metrics"
)

// HandleUtterance ships one segmented utterance through ASR and routes
// the result. Runs on its own goroutine per utterance; a later
// utterance that recognizes first wins the session.
func (o *Orchestrator) HandleUtterance(pcm []int16) {
	if o.state.ShuttingDown() {
		return
	}
	if float64(len(pcm))/SampleRate < MinASRSeconds {
		return
	}
	metrics.Utterances.Inc()

	text, err := o.asr.Recognize(o.state.root, audio.SamplesToBytes(pcm))
	if err != nil {
		o.log.Warn("asr failed", zap.Error(err))
		metrics.Errors.WithLabelValues("asr").Inc()
		text = ""
	}
	if text == "" {
		if o.music != nil {
			o.music.Unduck()
		}
		return
	}
	o.HandleText(text)
}

// HandleText routes one recognized utterance. Order is strict: wake
// gating first, then exit, volume, busy gating, and only then a new
// conversational turn.
func (o *Orchestrator) HandleText(text string) {
	tail, hit, pure := StripWake(text, o.cfg.WakeWords)

	if !o.state.Awake() {
		if !hit {
			o.log.Info("asleep, no wake word, ignoring", zap.String("text", text))
			if o.music != nil {
				o.music.Unduck()
			}
			return
		}
		o.state.SetAwake(true)
		o.state.TouchActive()
		metrics.WakeUps.Inc()
		if pure {
			o.log.Info("woken up")
			o.speakWakeAck()
			if o.music != nil {
				o.music.Unduck()
			}
			return
		}
		if strings.TrimSpace(tail) != "" {
			o.log.Info("woken up with command", zap.String("command", tail))
			text = tail
		} else {
			o.log.Info("wake word hit, keeping full text as command", zap.String("text", text))
		}
	} else {
		o.state.TouchActive()
		if hit {
			if pure {
				o.speakWakeAck()
				if o.music != nil {
					o.music.Unduck()
				}
				return
			}
			if t := strings.TrimSpace(tail); t != "" && tail != text {
				text = t
			}
		}
	}

	o.log.Info("command", zap.String("text", text))

	if IsExit(text) {
		o.log.Info("exit command, shutting down")
		o.state.Shutdown()
		o.PerformStop()
		return
	}

	ttsBusy := o.state.TTSBusy()
	musicBusy := o.music != nil && o.music.IsPlaying()

	if o.volume != nil && o.volume.Handle(text, ttsBusy, musicBusy, o.speakAck) {
		if o.music != nil {
			o.music.Unduck()
		}
		return
	}

	if ttsBusy || musicBusy {
		musicReq := HasMusicIntent(text)
		quickSwitch := musicBusy && IsQuickSwitch(text)

		if !IsInterrupt(text) && !musicReq && !quickSwitch {
			o.log.Info("busy, ignoring non-control command", zap.String("text", text))
			if o.music != nil {
				o.music.Unduck()
			}
			return
		}

		o.log.Info("busy override, stopping output", zap.String("text", text))
		metrics.BargeIns.Inc()
		o.PerformStop()
		if quickSwitch {
			o.log.Info("quick switch, picking a random track")
			o.music.SearchAndPlay("RANDOM")
		}
		return
	}

	enableSearch := WantsSearch(text)
	sessCtx, sessID := o.state.RotateSession()
	o.log.Debug("turn accepted", zap.String("session", sessID), zap.Bool("search", enableSearch))
	go o.runLLMTurn(sessCtx, text, enableSearch)
}

// speakAck queues a short confirmation as its own turn. Callers ensure
// the floor is free.
func (o *Orchestrator) speakAck(text string) {
	o.state.EnqueueText(text)
	o.state.EnqueueText(EndSentinel)
}
