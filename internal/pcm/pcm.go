// Package pcm converts captured float samples into the 16-bit wire format.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// Float32ToInt16 clamps x to [-1, 1] and scales it by 32767, truncating toward zero.
func Float32ToInt16(x float32) int16 {
	if math.IsNaN(float64(x)) {
		return 0
	}
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(float64(x) * 32767)
}

// EncodeFloat32 converts samples to 16-bit little-endian PCM.
func EncodeFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(Float32ToInt16(sample)))
	}
	return out
}

// DecodeFloat32LE fills dst with float32 little-endian samples read from src
// and returns the number of samples written.
func DecodeFloat32LE(src []byte, dst []float32) int {
	n := len(src) / 4
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return n
}

// Base64 encodes PCM bytes for the append-audio message.
func Base64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}
