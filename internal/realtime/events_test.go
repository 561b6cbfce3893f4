package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"pdfscribe/internal/domain"
	"pdfscribe/internal/ports"
)

func TestEncodeSessionUpdateShape(t *testing.T) {
	t.Parallel()

	msg, err := EncodeSessionUpdate(ports.TranscriptionConfig{
		Model:         "gpt-4o-mini-transcribe",
		Language:      "en",
		TurnDetection: ports.TurnDetection{Type: "server_vad", SilenceDurationMs: 800, Threshold: 0.5},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded struct {
		Type    string `json:"type"`
		Session struct {
			InputAudioTranscription struct {
				Model    string `json:"model"`
				Language string `json:"language"`
			} `json:"input_audio_transcription"`
			TurnDetection struct {
				Type              string  `json:"type"`
				SilenceDurationMs int     `json:"silence_duration_ms"`
				Threshold         float64 `json:"threshold"`
			} `json:"turn_detection"`
		} `json:"session"`
	}
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded.Type != TypeSessionUpdate {
		t.Fatalf("unexpected type: %q", decoded.Type)
	}
	if decoded.Session.InputAudioTranscription.Model != "gpt-4o-mini-transcribe" || decoded.Session.InputAudioTranscription.Language != "en" {
		t.Fatalf("unexpected transcription settings: %+v", decoded.Session.InputAudioTranscription)
	}
	td := decoded.Session.TurnDetection
	if td.Type != "server_vad" || td.SilenceDurationMs != 800 || td.Threshold != 0.5 {
		t.Fatalf("unexpected turn detection: %+v", td)
	}
}

func TestDecodeServerEventKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		kind    domain.ServerEventKind
		text    string
		message string
	}{
		{"delta", `{"type":"conversation.item.input_audio_transcription.delta","delta":"he"}`, domain.ServerEventDelta, "he", ""},
		{"delta transcript fallback", `{"type":"conversation.item.input_audio_transcription.delta","transcript":"lo"}`, domain.ServerEventDelta, "lo", ""},
		{"completed", `{"type":"conversation.item.input_audio_transcription.completed","transcript":"hello"}`, domain.ServerEventCompleted, "hello", ""},
		{"error", `{"type":"error","error":{"message":" bad audio "}}`, domain.ServerEventError, "", "bad audio"},
		{"error without body", `{"type":"error"}`, domain.ServerEventError, "", "Unknown error"},
		{"error with numeric code", `{"type":"error","error":{"code":4001,"message":"bad"}}`, domain.ServerEventError, "", "bad"},
		{"error as string", `{"type":"error","error":"rate limited"}`, domain.ServerEventError, "", "rate limited"},
		{"error with non-string message", `{"type":"error","error":{"message":42}}`, domain.ServerEventError, "", "Unknown error"},
		{"delta with object payload", `{"type":"conversation.item.input_audio_transcription.delta","delta":{"foo":1}}`, domain.ServerEventDelta, "", ""},
		{"other", `{"type":"input_audio_buffer.speech_started"}`, domain.ServerEventOther, "", ""},
		{"future event with object delta", `{"type":"some.future.event","delta":{"foo":1}}`, domain.ServerEventOther, "", ""},
		{"future event with string error", `{"type":"some.future.event","error":"text"}`, domain.ServerEventOther, "", ""},
		{"non-object frame", `[1,2,3]`, domain.ServerEventOther, "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			event, err := DecodeServerEvent([]byte(tc.raw))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if event.Kind != tc.kind || event.Text != tc.text || event.Message != tc.message {
				t.Fatalf("unexpected event: %+v", event)
			}
			if string(event.Raw) != tc.raw {
				t.Fatalf("raw payload not preserved: %s", event.Raw)
			}
		})
	}
}

func TestDecodeServerEventMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"{nope", ""} {
		if _, err := DecodeServerEvent([]byte(raw)); !errors.Is(err, ErrMalformedFrame) {
			t.Fatalf("expected malformed error for %q, got %v", raw, err)
		}
	}
}
