package usecase

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

func floatBlock(samples ...float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

func TestPumpAudioBlocksConvertsEachBlock(t *testing.T) {
	t.Parallel()

	input := append(floatBlock(1, -1), floatBlock(0, 0.5)...)
	var sent [][]byte
	err := pumpAudioBlocks(bytes.NewReader(input), 2, func(block []byte) {
		sent = append(sent, block)
	})
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(sent))
	}

	want := [][]int16{{32767, -32767}, {0, 16383}}
	for i, block := range sent {
		if len(block) != 4 {
			t.Fatalf("block %d: expected 4 bytes, got %d", i, len(block))
		}
		for j, expected := range want[i] {
			got := int16(binary.LittleEndian.Uint16(block[j*2:]))
			if got != expected {
				t.Fatalf("block %d sample %d: got %d want %d", i, j, got, expected)
			}
		}
	}
}

func TestPumpAudioBlocksDiscardsPartialBlock(t *testing.T) {
	t.Parallel()

	input := append(floatBlock(0.25, 0.25), floatBlock(0.25)...)
	calls := 0
	err := pumpAudioBlocks(bytes.NewReader(input), 2, func([]byte) { calls++ })
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one full block, got %d", calls)
	}
}

func TestPumpAudioBlocksReportsReadError(t *testing.T) {
	t.Parallel()

	readErr := errors.New("device revoked")
	err := pumpAudioBlocks(&errorReader{err: readErr}, 4096, func([]byte) {
		t.Fatalf("no block expected")
	})
	if !errors.Is(err, readErr) {
		t.Fatalf("expected read error, got %v", err)
	}
}

type errorReader struct {
	err error
}

func (r *errorReader) Read(_ []byte) (int, error) { return 0, r.err }
