package music

import (
	"io"
	"math"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aibox-labs/aibox-orchestrator/pkg/audio"
	"github.com/aibox-labs/aibox-orchestrator/pkg/metrics"
)

const (
	sampleRate   = 16000
	chunkSamples = 640 // 40ms
	chunkBytes   = chunkSamples * 2

	// Wall-clock pacing keeps the kernel buffer shallow so duck and
	// stop are audibly immediate.
	targetAhead = 120 * time.Millisecond
	maxAhead    = 180 * time.Millisecond

	// One-pole envelope time constants: fast down, slow back up.
	tauDown = 0.12
	tauUp   = 0.9

	duckTarget  = 0.2
	duckCeiling = 0.35

	restartGap = 200 * time.Millisecond
)

// Manager plays 16kHz mono PCM WAV files from a directory through its
// own playback child, with a smooth duck/unduck gain envelope.
type Manager struct {
	log *zap.Logger
	dir string

	mu      sync.Mutex
	playing bool
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stop    chan struct{}

	volMu   sync.Mutex
	target  float64
	current float64
}

// NewManager creates a manager over the given music directory.
func NewManager(dir string, log *zap.Logger) *Manager {
	return &Manager{
		log:     log,
		dir:     dir,
		stop:    make(chan struct{}),
		target:  1.0,
		current: 1.0,
	}
}

// IsPlaying reports whether a track is streaming.
func (m *Manager) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Duck drops the gain target so speech stays audible. The running gain
// is capped immediately so the drop is perceptible before the envelope
// takes over.
func (m *Manager) Duck() {
	if !m.IsPlaying() {
		return
	}
	m.volMu.Lock()
	m.target = duckTarget
	if m.current > duckCeiling {
		m.current = duckCeiling
	}
	m.volMu.Unlock()
}

// Unduck restores full gain.
func (m *Manager) Unduck() {
	if !m.IsPlaying() {
		return
	}
	m.volMu.Lock()
	m.target = 1.0
	m.volMu.Unlock()
}

// Stop tears down the current playback. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return
	}
	m.log.Info("music stopped")
	close(m.stop)
	if m.stdin != nil {
		_ = m.stdin.Close()
	}
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
	}
	m.playing = false
	m.stop = make(chan struct{})
}

// PlayFile starts streaming one WAV file, replacing whatever was
// playing.
func (m *Manager) PlayFile(path string) {
	m.Stop()
	time.Sleep(restartGap)

	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		m.log.Warn("music open failed", zap.String("path", path), zap.Error(err))
		return
	}

	cmd := exec.Command("aplay",
		"-D", "default", "-q",
		"-t", "raw",
		"-r", "16000",
		"-c", "1",
		"-f", "S16_LE",
		"-B", "80000",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		f.Close()
		return
	}
	if err := cmd.Start(); err != nil {
		f.Close()
		m.log.Warn("music player start failed", zap.Error(err))
		return
	}

	m.cmd = cmd
	m.stdin = stdin
	m.playing = true
	m.volMu.Lock()
	m.target = 1.0
	m.current = 1.0
	m.volMu.Unlock()
	m.log.Info("music playing", zap.String("track", filepath.Base(path)))
	metrics.MusicPlays.Inc()

	go m.streamFile(f, cmd, stdin, m.stop)
}

// streamFile pushes 40ms chunks through the gain envelope into the
// child, pacing against wall clock so at most ~180ms sits buffered.
func (m *Manager) streamFile(f *os.File, cmd *exec.Cmd, stdin io.WriteCloser, stop chan struct{}) {
	defer f.Close()
	defer func() {
		m.mu.Lock()
		if m.playing && m.cmd == cmd {
			m.playing = false
		}
		m.mu.Unlock()
		go cmd.Wait()
	}()

	if _, err := f.Seek(audio.HeaderSize, io.SeekStart); err != nil {
		return
	}

	buf := make([]byte, chunkBytes)
	var start time.Time
	var last time.Time
	wroteSamples := 0

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := io.ReadFull(f, buf)
		if n == 0 || (err != nil && err != io.ErrUnexpectedEOF) {
			return
		}

		now := time.Now()
		if start.IsZero() {
			start = now
			last = now
		}
		dt := now.Sub(last).Seconds()
		last = now

		m.volMu.Lock()
		current := nextGain(clamp01(m.current), clamp01(m.target), dt)
		m.current = current
		m.volMu.Unlock()

		samples := audio.BytesToSamples(buf[:n])
		audio.ApplyGain(samples, current)
		if _, err := stdin.Write(audio.SamplesToBytes(samples)); err != nil {
			return
		}

		wroteSamples += len(samples)
		audioDur := time.Duration(wroteSamples) * time.Second / sampleRate
		ahead := audioDur - time.Since(start)
		if ahead > maxAhead {
			time.Sleep(ahead - targetAhead)
		}

		if err == io.ErrUnexpectedEOF {
			return
		}
	}
}

// nextGain advances the one-pole envelope by dt seconds. Ramp-down is
// fast so ducking is heard immediately; ramp-up is slow so music fades
// back in rather than jumping.
func nextGain(current, target, dt float64) float64 {
	if dt <= 0 || current == target {
		return current
	}
	tau := tauUp
	if target < current {
		tau = tauDown
	}
	alpha := 1 - math.Exp(-dt/tau)
	return current + (target-current)*alpha
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SearchAndPlay picks a track: "RANDOM" draws uniformly, anything else
// is a case-insensitive substring match on the file name. Returns false
// when nothing matches.
func (m *Manager) SearchAndPlay(query string) bool {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.log.Warn("music dir unreadable", zap.String("dir", m.dir), zap.Error(err))
		return false
	}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".wav") {
			candidates = append(candidates, filepath.Join(m.dir, e.Name()))
		}
	}
	if len(candidates) == 0 {
		m.log.Warn("no wav files", zap.String("dir", m.dir))
		return false
	}

	var target string
	if query == "RANDOM" {
		target = candidates[rand.Intn(len(candidates))]
	} else {
		q := strings.ToLower(query)
		for _, path := range candidates {
			if strings.Contains(strings.ToLower(filepath.Base(path)), q) {
				target = path
				break
			}
		}
		if target == "" {
			m.log.Info("no track match", zap.String("query", query))
			return false
		}
	}
	m.PlayFile(target)
	return true
}
