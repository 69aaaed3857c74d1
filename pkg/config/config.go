package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config is the runtime configuration of the whole box. Everything is
// optional except the DashScope API key.
type Config struct {
	APIKey string

	ASRWSURL      string
	ASRModel      string
	ASRSampleRate int

	LLMURL         string
	LLMModelFast   string
	LLMModelSearch string

	TTSWSURL      string
	TTSModel      string
	TTSVoice      string
	TTSSampleRate int
	TTSVolume     int

	MusicDir string

	CaptureBackend string
	CaptureDevice  string
	CaptureChans   int
	CaptureRate    int
	CapturePeriod  int
	CaptureBuffer  int

	WakeWords       []string
	WakeAckText     string
	WakeIdleTimeout time.Duration

	// Segmenter thresholds, in 20ms VAD frames.
	SegDuckFrames    int
	SegTriggerFrames int
	SegSilenceFrames int

	VADThreshold float64

	MetricsAddr string
}

// Load reads an optional key=value file and the process environment.
// It fails only when no API key is configured.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg := Config{
		APIKey: str("AI_BOX_DASH_API_KEY", os.Getenv("DASHSCOPE_API_KEY")),

		ASRWSURL:      str("AI_BOX_ASR_WS_URL", "wss://dashscope.aliyuncs.com/api-ws/v1/inference"),
		ASRModel:      str("AI_BOX_ASR_MODEL", "paraformer-realtime-v2"),
		ASRSampleRate: integer("AI_BOX_ASR_SAMPLE_RATE", 16000),

		LLMURL:         str("AI_BOX_LLM_URL", "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"),
		LLMModelFast:   str("AI_BOX_LLM_MODEL_FAST", "qwen-turbo"),
		LLMModelSearch: str("AI_BOX_LLM_MODEL_SEARCH", "qwen-plus"),

		TTSWSURL:      str("AI_BOX_TTS_WS_URL", "wss://dashscope.aliyuncs.com/api-ws/v1/inference"),
		TTSModel:      str("AI_BOX_TTS_MODEL", "sambert-zhichu-v1"),
		TTSVoice:      str("AI_BOX_TTS_VOICE", "zhichu"),
		TTSSampleRate: integer("AI_BOX_TTS_SAMPLE_RATE", 22050),
		TTSVolume:     integer("AI_BOX_TTS_VOLUME", 50),

		MusicDir: str("AI_BOX_MUSIC_DIR", "/oem/music"),

		CaptureBackend: str("AI_BOX_CAPTURE_BACKEND", "arecord"),
		CaptureDevice:  str("AI_BOX_ARECORD_DEVICE", "hw:0,0"),
		CaptureChans:   integer("AI_BOX_ARECORD_CHANNELS", 10),
		CaptureRate:    integer("AI_BOX_ARECORD_RATE", 16000),
		CapturePeriod:  integer("AI_BOX_ARECORD_PERIOD", 256),
		CaptureBuffer:  integer("AI_BOX_ARECORD_BUFFER", 16384),

		WakeWords:       wordList("AI_BOX_WAKE_WORDS", []string{"你好小瑞", "小瑞小瑞"}),
		WakeAckText:     str("AI_BOX_WAKE_ACK_TEXT", "我在"),
		WakeIdleTimeout: duration("AI_BOX_WAKE_IDLE_TIMEOUT", 30*time.Second),

		SegDuckFrames:    integer("AI_BOX_SEG_DUCK_FRAMES", 2),
		SegTriggerFrames: integer("AI_BOX_SEG_TRIGGER_FRAMES", 10),
		SegSilenceFrames: integer("AI_BOX_SEG_SILENCE_FRAMES", 10),

		VADThreshold: float("AI_BOX_VAD_THRESHOLD", 0.02),

		MetricsAddr: str("AI_BOX_METRICS_ADDR", ""),
	}

	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("no API key configured: set AI_BOX_DASH_API_KEY or DASHSCOPE_API_KEY")
	}
	return cfg, nil
}

func str(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func float(key string, fallback float64) float64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := cast.ToFloat64E(val)
	if err != nil {
		return fallback
	}
	return n
}

func integer(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := cast.ToIntE(val)
	if err != nil {
		return fallback
	}
	return n
}

// duration parses values like "500ms", "45s", "2m", "1h". A bare number is
// taken as seconds.
func duration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := cast.ToIntE(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// wordList splits on ASCII and fullwidth commas.
func wordList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	val = strings.ReplaceAll(val, "，", ",")
	var words []string
	for _, w := range strings.Split(val, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return fallback
	}
	return words
}
