package oto

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/vsariola/mixseq"
)

// EncodeFloat32LE writes buf to dst as interleaved 32-bit little-endian
// floats and returns the number of bytes written. dst must hold 8 bytes per
// frame.
func EncodeFloat32LE(dst []byte, buf mixseq.AudioBuffer) int {
	i := 0
	for _, frame := range buf {
		binary.LittleEndian.PutUint32(dst[i:], math.Float32bits(frame[0]))
		binary.LittleEndian.PutUint32(dst[i+4:], math.Float32bits(frame[1]))
		i += 8
	}
	return i
}

// Encode16BitLE writes buf to dst as interleaved 16-bit signed little-endian
// integers, clipping to [-1, 1], and returns the number of bytes written.
// dst must hold 4 bytes per frame.
func Encode16BitLE(dst []byte, buf mixseq.AudioBuffer) int {
	i := 0
	for _, frame := range buf {
		binary.LittleEndian.PutUint16(dst[i:], uint16(to16Bit(frame[0])))
		binary.LittleEndian.PutUint16(dst[i+2:], uint16(to16Bit(frame[1])))
		i += 4
	}
	return i
}

func to16Bit(v float32) int16 {
	if v < -1.0 {
		return -math.MaxInt16
	}
	if v > 1.0 {
		return math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}

func frameDuration(sampleRate, frames int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
