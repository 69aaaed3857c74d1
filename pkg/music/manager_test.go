package music

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNextGainRampsDownFast(t *testing.T) {
	// 120ms at tau=0.12s covers ~63% of the drop.
	got := nextGain(1.0, 0.2, 0.12)
	if got > 0.55 {
		t.Errorf("ramp-down too slow: gain %f after one tau", got)
	}
	// The same interval ramping up barely moves (tau=0.9s).
	up := nextGain(0.2, 1.0, 0.12)
	if up > 0.35 {
		t.Errorf("ramp-up too fast: gain %f", up)
	}
}

func TestNextGainConverges(t *testing.T) {
	g := 1.0
	for i := 0; i < 100; i++ {
		g = nextGain(g, 0.2, 0.04)
	}
	if g > 0.21 {
		t.Errorf("gain failed to converge to target, got %f", g)
	}
	if nextGain(0.5, 0.5, 0.04) != 0.5 {
		t.Error("gain at target must not move")
	}
}

func TestDuckCapsCurrentGain(t *testing.T) {
	m := NewManager(t.TempDir(), zap.NewNop())
	m.playing = true
	m.current = 1.0

	m.Duck()

	m.volMu.Lock()
	defer m.volMu.Unlock()
	if m.target != duckTarget {
		t.Errorf("duck target = %f, want %f", m.target, duckTarget)
	}
	if m.current > duckCeiling {
		t.Errorf("duck must cap the running gain, got %f", m.current)
	}
}

func TestDuckUnduckNoopWhenStopped(t *testing.T) {
	m := NewManager(t.TempDir(), zap.NewNop())
	m.Duck()
	m.Unduck()
	if m.target != 1.0 {
		t.Error("idle manager must keep full gain")
	}
}

func TestSearchAndPlayMatching(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"周杰伦-晴天.wav", "邓紫棋-光年之外.WAV", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, 128), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m := NewManager(dir, zap.NewNop())

	if !m.SearchAndPlay("晴天") {
		t.Error("substring match should succeed")
	}
	m.Stop()
	if !m.SearchAndPlay("光年") {
		t.Error("matching must be case-insensitive on the extension")
	}
	m.Stop()
	if m.SearchAndPlay("不存在的歌") {
		t.Error("no match must return false")
	}
	if !m.SearchAndPlay("RANDOM") {
		t.Error("RANDOM must pick from available tracks")
	}
	m.Stop()
}

func TestSearchAndPlayEmptyDir(t *testing.T) {
	m := NewManager(t.TempDir(), zap.NewNop())
	if m.SearchAndPlay("RANDOM") {
		t.Error("empty directory must return false")
	}
	if m.IsPlaying() {
		t.Error("nothing should be playing")
	}
}

func TestSearchAndPlayMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	if m.SearchAndPlay("RANDOM") {
		t.Error("unreadable directory must return false")
	}
}

func TestStopIdempotent(t *testing.T) {
	m := NewManager(t.TempDir(), zap.NewNop())
	m.Stop()
	m.Stop()
	if m.IsPlaying() {
		t.Error("stopped manager reports playing")
	}
}
