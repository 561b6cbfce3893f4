package realtime

import (
	"encoding/json"
	"errors"
	"strings"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/pcm"
	"pdfscribe/internal/ports"
)

// Event types exchanged with the transcription endpoint.
const (
	TypeSessionUpdate          = "transcription_session.update"
	TypeAudioAppend            = "input_audio_buffer.append"
	TypeTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	TypeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeError                  = "error"
)

type sessionUpdate struct {
	Type    string              `json:"type"`
	Session sessionUpdateFields `json:"session"`
}

type sessionUpdateFields struct {
	InputAudioTranscription audioTranscription `json:"input_audio_transcription"`
	TurnDetection           turnDetection      `json:"turn_detection"`
}

type audioTranscription struct {
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	Threshold         float64 `json:"threshold"`
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// EncodeSessionUpdate builds the configuration message sent right after open.
func EncodeSessionUpdate(cfg ports.TranscriptionConfig) (domain.WireMessage, error) {
	msg := sessionUpdate{
		Type: TypeSessionUpdate,
		Session: sessionUpdateFields{
			InputAudioTranscription: audioTranscription{Model: cfg.Model, Language: cfg.Language},
			TurnDetection: turnDetection{
				Type:              cfg.TurnDetection.Type,
				SilenceDurationMs: cfg.TurnDetection.SilenceDurationMs,
				Threshold:         cfg.TurnDetection.Threshold,
			},
		},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return domain.WireMessage{}, err
	}
	return domain.WireMessage{Type: TypeSessionUpdate, Payload: payload}, nil
}

// EncodeAudioAppend wraps 16-bit PCM into an append-audio message.
func EncodeAudioAppend(samples []byte) (domain.WireMessage, error) {
	payload, err := json.Marshal(audioAppend{Type: TypeAudioAppend, Audio: pcm.Base64(samples)})
	if err != nil {
		return domain.WireMessage{}, err
	}
	return domain.WireMessage{Type: TypeAudioAppend, Payload: payload}, nil
}

// ErrMalformedFrame is returned for inbound frames that are not valid JSON.
var ErrMalformedFrame = errors.New("realtime frame is not valid json")

// DecodeServerEvent classifies an inbound frame by its type discriminator.
// Only the fields of known event types are inspected, so any well-formed
// frame decodes; unrecognized shapes become ServerEventOther.
func DecodeServerEvent(data []byte) (domain.ServerEvent, error) {
	if !json.Valid(data) {
		return domain.ServerEvent{}, ErrMalformedFrame
	}

	event := domain.ServerEvent{
		Kind: domain.ServerEventOther,
		Raw:  json.RawMessage(append([]byte(nil), data...)),
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return event, nil
	}
	event.Type = stringField(fields["type"])

	switch event.Type {
	case TypeTranscriptionDelta:
		event.Kind = domain.ServerEventDelta
		event.Text = stringField(fields["delta"])
		if event.Text == "" {
			event.Text = stringField(fields["transcript"])
		}
	case TypeTranscriptionCompleted:
		event.Kind = domain.ServerEventCompleted
		event.Text = stringField(fields["transcript"])
	case TypeError:
		event.Kind = domain.ServerEventError
		event.Message = errorMessage(fields["error"])
		if event.Message == "" {
			event.Message = "Unknown error"
		}
	}
	return event, nil
}

// errorMessage reads error.message, accepting a bare string as the message.
func errorMessage(raw json.RawMessage) string {
	if msg := stringField(raw); msg != "" {
		return strings.TrimSpace(msg)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(stringField(body["message"]))
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
