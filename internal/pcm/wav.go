package pcm

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// WAV wraps mono L16 PCM data in a RIFF/WAVE container.
func WAV(data []byte, sampleRate int) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(data))

	byteRate := sampleRate * BytesPerSample

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(BytesPerSample))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}
