package oto

import (
	"encoding/binary"
	"math"

	"github.com/minileebee/leebee"
)

// AppendFloat32LE appends the first frames of b to dst as interleaved 32-bit
// little-endian floats and returns the extended slice. Samples are passed
// through unclipped.
func AppendFloat32LE(dst []byte, b *leebee.AudioBuffer, frames int) []byte {
	frames = min(frames, b.BufferSize())
	for i := 0; i < frames; i++ {
		for _, ch := range b.All {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(ch[i]))
		}
	}
	return dst
}

// Append16BitLE appends the first frames of b to dst as interleaved 16-bit
// little-endian integers, clamping the samples to [-1, 1].
func Append16BitLE(dst []byte, b *leebee.AudioBuffer, frames int) []byte {
	frames = min(frames, b.BufferSize())
	for i := 0; i < frames; i++ {
		for _, ch := range b.All {
			v := ch[i]
			var uv int16
			if v < -1.0 {
				uv = -math.MaxInt16
			} else if v > 1.0 {
				uv = math.MaxInt16
			} else {
				uv = int16(v * math.MaxInt16)
			}
			dst = binary.LittleEndian.AppendUint16(dst, uint16(uv))
		}
	}
	return dst
}
