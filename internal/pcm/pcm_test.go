package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"
)

func TestFloat32ToInt16Boundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float32
		want int16
	}{
		{1.0, 32767},
		{-1.0, -32767},
		{0.0, 0},
		{2.5, 32767},
		{-7, -32767},
		{0.5, 16383},
		{-0.5, -16383},
	}
	for _, tc := range cases {
		if got := Float32ToInt16(tc.in); got != tc.want {
			t.Fatalf("Float32ToInt16(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFloat32ToInt16NaN(t *testing.T) {
	t.Parallel()

	if got := Float32ToInt16(float32(math.NaN())); got != 0 {
		t.Fatalf("expected NaN to map to 0, got %d", got)
	}
}

func TestEncodeFloat32LittleEndian(t *testing.T) {
	t.Parallel()

	out := EncodeFloat32([]float32{1, -1, 0})
	if len(out) != 6 {
		t.Fatalf("unexpected length: %d", len(out))
	}
	if got := int16(binary.LittleEndian.Uint16(out[0:])); got != 32767 {
		t.Fatalf("unexpected first sample: %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[2:])); got != -32767 {
		t.Fatalf("unexpected second sample: %d", got)
	}
	if out[4] != 0 || out[5] != 0 {
		t.Fatalf("expected zero sample, got %v", out[4:])
	}
}

func TestSilentBlockEncodesToZeroBytes(t *testing.T) {
	t.Parallel()

	encoded := Base64(EncodeFloat32(make([]float32, 4096)))
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(raw) != 8192 {
		t.Fatalf("expected 8192 bytes, got %d", len(raw))
	}
	for i, b := range raw {
		if b != 0 {
			t.Fatalf("expected zero byte at %d, got %d", i, b)
		}
	}
}

func TestDecodeFloat32LE(t *testing.T) {
	t.Parallel()

	src := make([]byte, 12)
	binary.LittleEndian.PutUint32(src[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(src[4:], math.Float32bits(-1))
	binary.LittleEndian.PutUint32(src[8:], math.Float32bits(3))

	dst := make([]float32, 2)
	n := DecodeFloat32LE(src, dst)
	if n != 2 {
		t.Fatalf("expected 2 samples limited by dst, got %d", n)
	}
	if dst[0] != 0.25 || dst[1] != -1 {
		t.Fatalf("unexpected samples: %v", dst)
	}
}
