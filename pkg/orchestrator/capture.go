package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/gen2brain/malgo"
)

// Source produces the raw interleaved S16_LE capture byte stream.
type Source interface {
	// Start begins capture. The returned reader yields raw frames;
	// closing it stops the source.
	Start(ctx context.Context) (io.ReadCloser, error)
}

// ArecordSource drives the board's ALSA capture process. This is the
// production source: 10 interleaved channels from the mic array plus
// loopback reference.
type ArecordSource struct {
	Device   string
	Channels int
	Rate     int
	Period   int
	Buffer   int
}

type procReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (r *procReader) Close() error {
	err := r.ReadCloser.Close()
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	go r.cmd.Wait()
	return err
}

// Start launches arecord and returns its stdout.
func (a *ArecordSource) Start(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, "arecord",
		"-D", a.Device,
		"-c", strconv.Itoa(a.Channels),
		"-r", strconv.Itoa(a.Rate),
		"-f", "S16_LE",
		"-t", "raw",
		fmt.Sprintf("--period-size=%d", a.Period),
		fmt.Sprintf("--buffer-size=%d", a.Buffer),
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("arecord start: %w", err)
	}
	return &procReader{ReadCloser: stdout, cmd: cmd}, nil
}

// MalgoSource captures through miniaudio instead of a child process.
// Meant for development hosts without the 10-channel array; the device
// is opened with the same channel count so the frame geometry matches.
type MalgoSource struct {
	Channels int
	Rate     int
}

type malgoReader struct {
	*io.PipeReader
	device *malgo.Device
	mctx   *malgo.AllocatedContext
}

func (r *malgoReader) Close() error {
	r.device.Uninit()
	_ = r.mctx.Uninit()
	return r.PipeReader.Close()
}

// Start opens a capture device and pipes its frames through.
func (m *MalgoSource) Start(ctx context.Context) (io.ReadCloser, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}

	pr, pw := io.Pipe()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.Channels)
	deviceConfig.SampleRate = uint32(m.Rate)
	deviceConfig.Alsa.NoMMap = 1

	onRecv := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput == nil {
			return
		}
		if _, err := pw.Write(pInput); err != nil {
			// Reader gone; the device is being torn down.
			return
		}
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecv})
	if err != nil {
		_ = mctx.Uninit()
		return nil, fmt.Errorf("malgo device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		return nil, fmt.Errorf("malgo start: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = pw.Close()
	}()

	return &malgoReader{PipeReader: pr, device: device, mctx: mctx}, nil
}
