package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Utterances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aibox_utterances_total",
		Help: "Utterances dispatched to ASR",
	})

	BargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aibox_barge_ins_total",
		Help: "Global stops triggered by user barge-in",
	})

	WakeUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aibox_wake_ups_total",
		Help: "Transitions from asleep to awake",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aibox_errors_total",
		Help: "Worker errors by stage",
	}, []string{"stage"})

	TTSFirstAudio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aibox_tts_first_audio_seconds",
		Help:    "Latency from run-task to first TTS PCM frame",
		Buckets: []float64{0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0},
	})

	LLMDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aibox_llm_stream_seconds",
		Help:    "Total LLM stream duration per turn",
		Buckets: []float64{0.5, 1.0, 2.0, 3.0, 5.0, 8.0, 13.0, 21.0},
	})

	MusicPlays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aibox_music_plays_total",
		Help: "Music tracks started",
	})
)
