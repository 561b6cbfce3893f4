package usecase

import (
	"strings"
	"sync"
)

// transcriptBuffer is append-only until cleared.
type transcriptBuffer struct {
	mu      sync.Mutex
	builder strings.Builder
}

func newTranscriptBuffer() *transcriptBuffer {
	return &transcriptBuffer{}
}

// AppendDelta grows the current utterance without a separator.
func (b *transcriptBuffer) AppendDelta(fragment string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builder.WriteString(fragment)
	return b.builder.String()
}

// AppendSegment marks an utterance boundary with a newline.
func (b *transcriptBuffer) AppendSegment(fragment string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builder.WriteByte('\n')
	b.builder.WriteString(fragment)
	return b.builder.String()
}

func (b *transcriptBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builder.String()
}

func (b *transcriptBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builder.Len()
}

func (b *transcriptBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builder.Reset()
}

// Tail returns at most n trailing bytes, cut on a rune boundary.
func (b *transcriptBuffer) Tail(n int) string {
	text := b.String()
	if n <= 0 || len(text) <= n {
		return text
	}
	cut := len(text) - n
	for cut < len(text) && !isRuneStart(text[cut]) {
		cut++
	}
	return text[cut:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
