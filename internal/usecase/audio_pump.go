package usecase

import (
	"io"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/pcm"
)

// pumpAudioBlocks reads fixed-size blocks of float32 LE samples and hands
// each one, converted to 16-bit PCM, to send. It returns the read error that
// ended the capture.
func pumpAudioBlocks(audio io.Reader, blockSize int, send func(block []byte)) error {
	if blockSize <= 0 {
		blockSize = 4096
	}

	raw := make([]byte, blockSize*4)
	samples := make([]float32, blockSize)
	for {
		if _, err := io.ReadFull(audio, raw); err != nil {
			return err
		}
		n := pcm.DecodeFloat32LE(raw, samples)
		send(pcm.EncodeFloat32(samples[:n]))
	}
}

func (s *Session) pump(rec *activeRecording) {
	defer close(rec.done)

	err := pumpAudioBlocks(rec.audio, s.cfg.BlockSize, func(block []byte) {
		s.sendBlock(rec, block)
	})
	s.recordingEnded(rec, err)
}

// sendBlock forwards one block while rec is current and the transport is
// open. Anything else drops the block.
func (s *Session) sendBlock(rec *activeRecording, block []byte) {
	s.mu.Lock()
	if s.recording != rec || s.transport == nil || s.connState != domain.ConnectionOpen {
		s.mu.Unlock()
		return
	}
	msg, err := s.transport.session.AppendAudio(block)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("audio block dropped", "error", err)
		return
	}
	entry := s.log.Append(msg.Type, domain.DirectionOutgoing, msg.Payload)
	s.mu.Unlock()

	s.events.EventLogged(entry)
}
