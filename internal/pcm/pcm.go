// Package pcm converts captured float samples into 16-bit little-endian PCM
// frames and assembles finalized recordings.
package pcm

import (
	"encoding/binary"
	"math"
	"time"
)

// BytesPerSample is the size of one mono L16 sample.
const BytesPerSample = 2

// AppendInt16LE appends samples to dst as signed 16-bit little-endian PCM.
// Each sample is clamped to [-1, 1] and scaled by 32768 when negative and
// 32767 otherwise; the fractional part is truncated toward zero.
func AppendInt16LE(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(toInt16(s)))
	}
	return dst
}

// EncodeFrame returns one wire frame for a block of samples.
func EncodeFrame(samples []float32) []byte {
	return AppendInt16LE(make([]byte, 0, len(samples)*BytesPerSample), samples)
}

// DecodeInt16LE reads little-endian int16 samples. A trailing odd byte is
// ignored.
func DecodeInt16LE(frame []byte) []int16 {
	out := make([]int16, len(frame)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(frame[i*BytesPerSample:]))
	}
	return out
}

// RMS returns the root-mean-square level of float samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// BytesInDuration returns the number of mono L16 bytes covering d at the
// given sample rate.
func BytesInDuration(sampleRate int, d time.Duration) int {
	return int(int64(sampleRate)*int64(d)/int64(time.Second)) * BytesPerSample
}

func toInt16(s float32) int16 {
	switch {
	case s != s: // NaN
		return 0
	case s <= -1:
		return math.MinInt16
	case s >= 1:
		return math.MaxInt16
	case s < 0:
		return int16(s * 32768)
	default:
		return int16(s * 32767)
	}
}
