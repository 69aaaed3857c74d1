package orchestrator

import (
	"testing"
)

func TestPerformStopDrainsQueues(t *testing.T) {
	mus := &fakeMusic{playing: true}
	o := newTestOrchestrator(t, Deps{Music: mus})

	for i := 0; i < 10; i++ {
		o.state.EnqueueText("chunk")
		o.state.EnqueuePCM([]byte{1, 2, 3})
	}
	o.state.EnqueueText(EndSentinel)

	o.PerformStop()

	if got := drainTexts(o); len(got) != 0 {
		t.Errorf("text queue not empty after stop: %v", got)
	}
	select {
	case <-o.state.AudioPCM():
		t.Error("pcm queue not empty after stop")
	default:
	}
	mus.mu.Lock()
	defer mus.mu.Unlock()
	if mus.stops != 1 {
		t.Errorf("expected music stop, got %d", mus.stops)
	}
}

func TestPerformStopCancelsSession(t *testing.T) {
	o := newTestOrchestrator(t, Deps{})

	ctx, _ := o.state.Session()
	o.PerformStop()

	if ctx.Err() == nil {
		t.Error("current session must be cancelled by stop")
	}
}

func TestPerformStopIdempotent(t *testing.T) {
	mus := &fakeMusic{}
	o := newTestOrchestrator(t, Deps{Music: mus})

	o.PerformStop()
	o.PerformStop()
	o.PerformStop()
	// No panic, no leaked state: that is the contract.
	if o.state.TTSBusy() {
		t.Error("player slot must stay empty")
	}
}
