package orchestrator

import "github.com/aibox-labs/aibox-orchestrator/pkg/audio"

// PassthroughAEC is the degraded-mode echo canceller used when the
// native beamformer is unavailable: it passes the first mic channel
// through unchanged and reports no direction of arrival.
type PassthroughAEC struct{}

// Process extracts channel 0 of the interleaved frame.
func (PassthroughAEC) Process(raw []int16) ([]int16, int, bool) {
	if len(raw) != FrameSize*CaptureChannels {
		return nil, 0, false
	}
	return audio.FirstChannel(raw, CaptureChannels), 0, true
}
