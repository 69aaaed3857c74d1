package config

import (
	"testing"
	"time"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("AI_BOX_DASH_API_KEY", "")
	t.Setenv("DASHSCOPE_API_KEY", "")
	if _, err := Load(""); err == nil {
		t.Fatal("expected an error without an API key")
	}
}

func TestLoadFallsBackToDashscopeKey(t *testing.T) {
	t.Setenv("AI_BOX_DASH_API_KEY", "")
	t.Setenv("DASHSCOPE_API_KEY", "sk-test")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("expected fallback key, got %q", cfg.APIKey)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_BOX_DASH_API_KEY", "sk-test")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CaptureChans != 10 || cfg.CaptureRate != 16000 || cfg.CapturePeriod != 256 {
		t.Errorf("unexpected capture defaults: %+v", cfg)
	}
	if cfg.TTSSampleRate != 22050 {
		t.Errorf("unexpected tts sample rate: %d", cfg.TTSSampleRate)
	}
	if len(cfg.WakeWords) == 0 {
		t.Error("expected default wake words")
	}
	if cfg.SegDuckFrames != 2 || cfg.SegTriggerFrames != 10 || cfg.SegSilenceFrames != 10 {
		t.Errorf("unexpected segmenter defaults: %+v", cfg)
	}
}

func TestDurationSuffixes(t *testing.T) {
	t.Setenv("AI_BOX_DASH_API_KEY", "sk-test")

	cases := []struct {
		val  string
		want time.Duration
	}{
		{"500ms", 500 * time.Millisecond},
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"1h", time.Hour},
		{"45", 45 * time.Second}, // bare number is seconds
	}
	for _, tc := range cases {
		t.Setenv("AI_BOX_WAKE_IDLE_TIMEOUT", tc.val)
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.WakeIdleTimeout != tc.want {
			t.Errorf("timeout %q = %v, want %v", tc.val, cfg.WakeIdleTimeout, tc.want)
		}
	}
}

func TestWakeWordSeparators(t *testing.T) {
	t.Setenv("AI_BOX_DASH_API_KEY", "sk-test")
	t.Setenv("AI_BOX_WAKE_WORDS", "你好小瑞，小瑞小瑞, 你好助手")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"你好小瑞", "小瑞小瑞", "你好助手"}
	if len(cfg.WakeWords) != len(want) {
		t.Fatalf("expected %d wake words, got %v", len(want), cfg.WakeWords)
	}
	for i := range want {
		if cfg.WakeWords[i] != want[i] {
			t.Errorf("wake word %d = %q, want %q", i, cfg.WakeWords[i], want[i])
		}
	}
}

func TestBadIntFallsBack(t *testing.T) {
	t.Setenv("AI_BOX_DASH_API_KEY", "sk-test")
	t.Setenv("AI_BOX_TTS_SAMPLE_RATE", "not-a-number")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TTSSampleRate != 22050 {
		t.Errorf("bad int must fall back to default, got %d", cfg.TTSSampleRate)
	}
}
