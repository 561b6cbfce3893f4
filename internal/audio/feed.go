package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"pdfscribe/internal/logging"
	"pdfscribe/internal/ports"
)

var (
	ErrNoSource      = errors.New("no browser audio source attached")
	ErrSourceBusy    = errors.New("a browser audio source is already attached")
	ErrCaptureActive = errors.New("browser capture already active")
)

// Feed is a capture source fed by a browser over a socket. Frames carry
// float32 LE samples captured at the configured rate.
type Feed struct {
	queue  int
	logger *slog.Logger

	mu       sync.Mutex
	attached uint64
	nextID   uint64
	current  *feedSession
	dropped  uint64
}

func NewFeed(queueFrames int) *Feed {
	if queueFrames <= 0 {
		queueFrames = 32
	}
	return &Feed{queue: queueFrames, logger: logging.For("audio")}
}

// Attach registers the single browser source. The returned detach ends any
// capture that source was feeding.
func (f *Feed) Attach() (detach func(), err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attached != 0 {
		return nil, ErrSourceBusy
	}
	f.nextID++
	id := f.nextID
	f.attached = id

	var once sync.Once
	return func() { once.Do(func() { f.detach(id) }) }, nil
}

func (f *Feed) detach(id uint64) {
	f.mu.Lock()
	if f.attached != id {
		f.mu.Unlock()
		return
	}
	f.attached = 0
	current := f.current
	f.mu.Unlock()

	if current != nil {
		f.logger.Info("browser audio source detached during capture")
		_ = current.Stop()
	}
}

// Attached reports whether a browser source is connected.
func (f *Feed) Attached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached != 0
}

// Write queues one frame for the active capture. It never blocks; frames
// are dropped when no capture is active or the queue is full.
func (f *Feed) Write(frame []byte) bool {
	if len(frame) == 0 || len(frame)%4 != 0 {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return false
	}
	select {
	case f.current.frames <- frame:
		return true
	default:
		f.dropped++
		if f.dropped%100 == 1 {
			f.logger.Warn("browser audio frames dropped", "total", f.dropped)
		}
		return false
	}
}

func (f *Feed) Start(ctx context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attached == 0 {
		return nil, ErrNoSource
	}
	if f.current != nil {
		return nil, ErrCaptureActive
	}

	s := &feedSession{owner: f, frames: make(chan []byte, f.queue), stop: make(chan struct{})}
	f.current = s
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop()
		case <-s.stop:
		}
	}()
	return s, nil
}

func (f *Feed) release(s *feedSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == s {
		f.current = nil
	}
}

type feedSession struct {
	owner    *Feed
	frames   chan []byte
	stop     chan struct{}
	stopOnce sync.Once
	pending  []byte
}

func (s *feedSession) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		select {
		case <-s.stop:
			return 0, io.EOF
		case frame := <-s.frames:
			s.pending = frame
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *feedSession) Close() error {
	return s.Stop()
}

func (s *feedSession) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.owner.release(s)
	})
	return nil
}
