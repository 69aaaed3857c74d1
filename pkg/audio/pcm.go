package audio

// Helpers for 16-bit little-endian PCM, the only sample format the box
// deals in end to end.

// BytesToSamples reinterprets little-endian S16 bytes as samples. A
// trailing odd byte is dropped.
func BytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return samples
}

// SamplesToBytes serializes samples as little-endian S16 bytes.
func SamplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[2*i] = byte(s)
		b[2*i+1] = byte(uint16(s) >> 8)
	}
	return b
}

// FirstChannel extracts channel 0 from an interleaved frame of the given
// channel count.
func FirstChannel(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		out := make([]int16, len(interleaved))
		copy(out, interleaved)
		return out
	}
	out := make([]int16, len(interleaved)/channels)
	for i := range out {
		out[i] = interleaved[i*channels]
	}
	return out
}

// ApplyGain scales samples in place by gain with int16 saturation.
func ApplyGain(samples []int16, gain float64) {
	for i, s := range samples {
		v := int(float64(s) * gain)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		samples[i] = int16(v)
	}
}
