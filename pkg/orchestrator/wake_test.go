package orchestrator

import (
	"testing"
	"time"
)

func TestStripWake(t *testing.T) {
	wakeWords := []string{"你好小瑞", "小瑞小瑞"}

	cases := []struct {
		name string
		text string
		tail string
		hit  bool
		pure bool
	}{
		{"bare wake word", "你好小瑞", "", true, true},
		{"wake word with punctuation", "你好小瑞。", "", true, true},
		{"wake plus command", "你好小瑞，今天天气怎么样", "今天天气怎么样", true, false},
		{"second wake word", "小瑞小瑞", "", true, true},
		{"no wake word", "今天天气怎么样", "", false, false},
		{"wake word mid-sentence", "请问你好小瑞在吗", "在吗", true, false},
		{"empty", "", "", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tail, hit, pure := StripWake(tc.text, wakeWords)
			if hit != tc.hit || pure != tc.pure || tail != tc.tail {
				t.Errorf("StripWake(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tc.text, tail, hit, pure, tc.tail, tc.hit, tc.pure)
			}
		})
	}
}

func TestIdleTickSleepsAfterTimeout(t *testing.T) {
	o := newTestOrchestrator(t, Deps{Music: &fakeMusic{}})
	o.cfg.WakeIdleTimeout = 10 * time.Millisecond

	o.state.SetAwake(true)
	o.state.TouchActive()
	time.Sleep(20 * time.Millisecond)

	o.idleTick()
	if o.state.Awake() {
		t.Error("expected sleep after idle timeout")
	}
}

func TestIdleTickHoldsWhileFloorBusy(t *testing.T) {
	mus := &fakeMusic{playing: true}
	o := newTestOrchestrator(t, Deps{Music: mus})
	o.cfg.WakeIdleTimeout = time.Millisecond

	o.state.SetAwake(true)
	o.state.TouchActive()
	time.Sleep(10 * time.Millisecond)

	o.idleTick()
	if !o.state.Awake() {
		t.Error("must not sleep while music holds the floor")
	}
}

func TestIdleTickIgnoresUntouchedClock(t *testing.T) {
	o := newTestOrchestrator(t, Deps{})
	o.cfg.WakeIdleTimeout = time.Millisecond

	o.state.SetAwake(true)
	o.idleTick()
	if !o.state.Awake() {
		t.Error("a never-touched clock must not trigger sleep")
	}
}

func TestIdleTickWithinTimeout(t *testing.T) {
	o := newTestOrchestrator(t, Deps{})
	o.cfg.WakeIdleTimeout = time.Hour

	o.state.SetAwake(true)
	o.state.TouchActive()
	o.idleTick()
	if !o.state.Awake() {
		t.Error("must stay awake inside the timeout")
	}
}
