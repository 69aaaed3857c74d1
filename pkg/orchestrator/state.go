package orchestrator

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ttsTextQueueCap  = 500
	audioPCMQueueCap = 4000
)

// State is the shared state every worker cooperates through: the rotating
// session, the wake flag, the two bounded queues and the TTS playback
// child slot.
type State struct {
	log *zap.Logger

	root context.Context

	sessionMu     sync.Mutex
	sessionID     string
	sessionCtx    context.Context
	sessionCancel context.CancelFunc

	awakeMu sync.Mutex
	awake   bool

	lastActive atomic.Int64 // unix nanos, 0 = never

	ttsText  chan string
	audioPCM chan []byte

	playerMu    sync.Mutex
	playerProc  *exec.Cmd
	playerStdin io.WriteCloser

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewState creates shared state. Sessions derive from root so process
// shutdown cancels every in-flight worker.
func NewState(root context.Context, log *zap.Logger) *State {
	s := &State{
		log:      log,
		root:     root,
		ttsText:  make(chan string, ttsTextQueueCap),
		audioPCM: make(chan []byte, audioPCMQueueCap),
		shutdown: make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(root)
	s.sessionID = uuid.NewString()
	s.sessionCtx = ctx
	s.sessionCancel = cancel
	return s
}

// Session returns the current session's context and id. Workers hold the
// returned context, never the live slot.
func (s *State) Session() (context.Context, string) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.sessionCtx, s.sessionID
}

// RotateSession cancels the current session and installs a fresh one.
// In-flight workers bound to the old context observe cancellation; the
// returned context belongs to the new turn.
func (s *State) RotateSession() (context.Context, string) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.sessionCancel()
	ctx, cancel := context.WithCancel(s.root)
	s.sessionID = uuid.NewString()
	s.sessionCtx = ctx
	s.sessionCancel = cancel
	s.log.Debug("session rotated", zap.String("session", s.sessionID))
	return ctx, s.sessionID
}

// CancelSession cancels the current session without installing a new
// one. The next accepted command rotates.
func (s *State) CancelSession() {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.sessionCancel()
}

// Awake reports the wake gate.
func (s *State) Awake() bool {
	s.awakeMu.Lock()
	defer s.awakeMu.Unlock()
	return s.awake
}

// SetAwake flips the wake gate.
func (s *State) SetAwake(v bool) {
	s.awakeMu.Lock()
	s.awake = v
	s.awakeMu.Unlock()
}

// TouchActive refreshes the idle clock. Called whenever the router
// accepts input.
func (s *State) TouchActive() {
	s.lastActive.Store(time.Now().UnixNano())
}

// IdleSince returns the last-active instant, zero if never touched.
func (s *State) IdleSince() time.Time {
	ns := s.lastActive.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// EnqueueText puts one chunk on the TTS text queue. Blocks on overflow;
// producers are cloud-bound and slower than the consumer in steady state.
func (s *State) EnqueueText(msg string) {
	select {
	case s.ttsText <- msg:
	case <-s.shutdown:
	}
}

// TTSText is the consumer side of the text queue.
func (s *State) TTSText() <-chan string {
	return s.ttsText
}

// EnqueuePCM puts one PCM blob on the audio queue. An empty blob is the
// end-of-stream sentinel for the sink.
func (s *State) EnqueuePCM(pcm []byte) {
	select {
	case s.audioPCM <- pcm:
	case <-s.shutdown:
	}
}

// AudioPCM is the consumer side of the PCM queue.
func (s *State) AudioPCM() <-chan []byte {
	return s.audioPCM
}

// FlushText discards everything queued for TTS.
func (s *State) FlushText() {
	for {
		select {
		case <-s.ttsText:
		default:
			return
		}
	}
}

// FlushPCM discards everything queued for the sink.
func (s *State) FlushPCM() {
	for {
		select {
		case <-s.audioPCM:
		default:
			return
		}
	}
}

// StorePlayer records the running TTS playback child.
func (s *State) StorePlayer(proc *exec.Cmd, stdin io.WriteCloser) {
	s.playerMu.Lock()
	s.playerProc = proc
	s.playerStdin = stdin
	s.playerMu.Unlock()
}

// PlayerStdin returns the playback child's stdin, nil when no child runs.
func (s *State) PlayerStdin() io.WriteCloser {
	s.playerMu.Lock()
	defer s.playerMu.Unlock()
	return s.playerStdin
}

// TakePlayerStdin nulls only the stdin half of the slot. The proc stays
// so TTSBusy keeps reporting the floor until the reaper clears it.
func (s *State) TakePlayerStdin() (*exec.Cmd, io.WriteCloser) {
	s.playerMu.Lock()
	proc, stdin := s.playerProc, s.playerStdin
	s.playerStdin = nil
	s.playerMu.Unlock()
	return proc, stdin
}

// TakePlayer empties the player slot and returns what was there.
func (s *State) TakePlayer() (*exec.Cmd, io.WriteCloser) {
	s.playerMu.Lock()
	proc, stdin := s.playerProc, s.playerStdin
	s.playerProc = nil
	s.playerStdin = nil
	s.playerMu.Unlock()
	return proc, stdin
}

// ClearPlayerIf empties the slot only if it still holds proc. The sink's
// reaper uses this so it never clobbers a newer child.
func (s *State) ClearPlayerIf(proc *exec.Cmd) {
	s.playerMu.Lock()
	if s.playerProc == proc {
		s.playerProc = nil
		s.playerStdin = nil
	}
	s.playerMu.Unlock()
}

// TTSBusy reports whether a TTS playback child is alive. The slot is
// cleared by the sink's reaper once the child exits, so a non-nil proc
// means audible output.
func (s *State) TTSBusy() bool {
	s.playerMu.Lock()
	defer s.playerMu.Unlock()
	return s.playerProc != nil
}

// Shutdown flips the process-wide stop flag. Idempotent.
func (s *State) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// Done is closed once shutdown begins.
func (s *State) Done() <-chan struct{} {
	return s.shutdown
}

// ShuttingDown reports whether shutdown has begun.
func (s *State) ShuttingDown() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}
