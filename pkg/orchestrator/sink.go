package orchestrator

import (
	"context"
	"io"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// sinkSettleDelay lets the playback child swallow the last frames before
// stdin closes, so "not busy" is only reported once the speaker is
// actually done.
const sinkSettleDelay = 500 * time.Millisecond

func (o *Orchestrator) startPlayer() (io.WriteCloser, error) {
	cmd := exec.Command("aplay",
		"-D", "default",
		"-t", "raw",
		"-r", strconv.Itoa(o.cfg.TTSSampleRate),
		"-f", "S16_LE",
		"-c", "1",
		"-B", "20000",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, ErrPlayerStart
	}
	o.state.StorePlayer(cmd, stdin)
	o.log.Debug("tts playback process started")
	return stdin, nil
}

// RunAudioSink is the single consumer of the PCM queue. Non-empty blobs
// go to the playback child's stdin; the empty-blob sentinel closes the
// stream and releases the floor once the child exits.
func (o *Orchestrator) RunAudioSink(ctx context.Context) {
	for {
		var pcm []byte
		select {
		case <-ctx.Done():
			return
		case <-o.state.Done():
			return
		case pcm = <-o.state.AudioPCM():
		}

		if len(pcm) == 0 {
			time.Sleep(sinkSettleDelay)
			proc, stdin := o.state.TakePlayerStdin()
			if stdin != nil {
				_ = stdin.Close()
			}
			if proc != nil {
				// The proc stays in the slot while it drains; the floor
				// is only released once the child has really exited.
				go func(p *exec.Cmd) {
					_ = p.Wait()
					o.state.ClearPlayerIf(p)
					o.log.Debug("tts playback drained, floor released")
				}(proc)
			}
			continue
		}

		stdin := o.state.PlayerStdin()
		if stdin == nil {
			var err error
			stdin, err = o.startPlayer()
			if err != nil {
				o.log.Error("playback start failed, dropping output", zap.Error(err))
				continue
			}
		}
		if _, err := stdin.Write(pcm); err != nil {
			o.log.Warn("playback write failed", zap.Error(err))
			proc, _ := o.state.TakePlayer()
			if proc != nil && proc.Process != nil {
				_ = proc.Process.Kill()
				go proc.Wait()
			}
		}
	}
}
