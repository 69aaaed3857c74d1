package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aibox-labs/aibox-orchestrator/pkg/config"
	"github.com/aibox-labs/aibox-orchestrator/pkg/music"
	"github.com/aibox-labs/aibox-orchestrator/pkg/orchestrator"
	asrProvider "github.com/aibox-labs/aibox-orchestrator/pkg/providers/asr"
	llmProvider "github.com/aibox-labs/aibox-orchestrator/pkg/providers/llm"
	ttsProvider "github.com/aibox-labs/aibox-orchestrator/pkg/providers/tts"
	"github.com/aibox-labs/aibox-orchestrator/pkg/volume"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("AI_BOX_ENV_FILE"))
	if err != nil {
		log.Fatal("configuration invalid", zap.Error(err))
	}

	log.Info("aibox orchestrator starting",
		zap.String("asr_model", cfg.ASRModel),
		zap.String("llm_fast", cfg.LLMModelFast),
		zap.String("llm_search", cfg.LLMModelSearch),
		zap.String("tts_model", cfg.TTSModel),
		zap.Strings("wake_words", cfg.WakeWords),
	)
	log.Info("starting asleep, answering wake words only")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := orchestrator.NewState(ctx, log)

	var capture orchestrator.Source
	switch cfg.CaptureBackend {
	case "malgo":
		capture = &orchestrator.MalgoSource{
			Channels: cfg.CaptureChans,
			Rate:     cfg.CaptureRate,
		}
	default:
		capture = &orchestrator.ArecordSource{
			Device:   cfg.CaptureDevice,
			Channels: cfg.CaptureChans,
			Rate:     cfg.CaptureRate,
			Period:   cfg.CapturePeriod,
			Buffer:   cfg.CaptureBuffer,
		}
	}

	orch := orchestrator.New(cfg, log, state, orchestrator.Deps{
		ASR:     asrProvider.NewClient(cfg.APIKey, cfg.ASRWSURL, cfg.ASRModel, cfg.ASRSampleRate),
		LLM:     llmProvider.NewClient(cfg.APIKey, cfg.LLMURL, cfg.LLMModelFast, cfg.LLMModelSearch),
		TTS:     ttsProvider.NewClient(cfg.APIKey, cfg.TTSWSURL, cfg.TTSModel, cfg.TTSVoice, cfg.TTSSampleRate, cfg.TTSVolume),
		Music:   music.NewManager(cfg.MusicDir, log),
		Volume:  volume.NewHandler(volume.NewMixer(), log),
		VAD:     orchestrator.NewEnergyVAD(cfg.VADThreshold),
		Capture: capture,
	})

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warn("metrics listener failed", zap.Error(err))
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("signal received, cleaning up")
		orch.PerformStop()
		state.Shutdown()
	}()

	if err := orch.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("orchestrator stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
