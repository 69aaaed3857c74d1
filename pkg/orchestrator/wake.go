package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// idleTickInterval is how often the wake gate re-checks the idle clock.
const idleTickInterval = 2 * time.Second

func normalizeWakeText(text string) string {
	return StripPunct(strings.ToLower(strings.TrimSpace(text)))
}

// StripWake looks for a wake word inside text. It returns the command
// tail after the wake word, whether any wake word was hit, and whether
// the text was a bare wake word. The tail is recovered from the raw text
// so the command keeps its original characters; when the raw position
// cannot be recovered the whole text is passed through as the command.
func StripWake(text string, wakeWords []string) (tail string, hit, pure bool) {
	normalized := normalizeWakeText(text)
	for _, w := range wakeWords {
		nw := normalizeWakeText(w)
		if nw == "" {
			continue
		}
		idx := strings.Index(normalized, nw)
		if idx < 0 {
			continue
		}
		tailNorm := strings.TrimSpace(normalized[idx+len(nw):])
		if tailNorm == "" {
			return "", true, true
		}
		if pos := strings.Index(text, w); pos >= 0 {
			rawTail := strings.TrimSpace(StripPunct(text[pos+len(w):]))
			if rawTail != "" {
				return rawTail, true, false
			}
		}
		return text, true, false
	}
	return "", false, false
}

// speakWakeAck replaces anything queued for TTS with the wake
// acknowledgement.
func (o *Orchestrator) speakWakeAck() {
	o.state.FlushText()
	o.state.EnqueueText(o.cfg.WakeAckText)
	o.state.EnqueueText(EndSentinel)
}

// audibleBusy reports whether anything holds the speaking floor.
func (o *Orchestrator) audibleBusy() bool {
	if o.state.TTSBusy() {
		return true
	}
	return o.music != nil && o.music.IsPlaying()
}

// RunIdleMonitor drops the wake gate after the idle timeout. It never
// sleeps the box mid-sentence: an audible floor holder resets nothing
// but blocks the transition.
func (o *Orchestrator) RunIdleMonitor(ctx context.Context) {
	ticker := time.NewTicker(idleTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.state.Done():
			return
		case <-ticker.C:
		}
		o.idleTick()
	}
}

// idleTick is one pass of the monitor: drop the gate when awake, floor
// free and past the timeout.
func (o *Orchestrator) idleTick() {
	if !o.state.Awake() {
		return
	}
	if o.audibleBusy() {
		return
	}
	last := o.state.IdleSince()
	if last.IsZero() {
		return
	}
	if time.Since(last) <= o.cfg.WakeIdleTimeout {
		return
	}
	o.state.SetAwake(false)
	o.log.Info("idle timeout, back to sleep", zap.Duration("timeout", o.cfg.WakeIdleTimeout))
}
