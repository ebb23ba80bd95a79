package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageHello(t *testing.T) {
	raw := []byte(`{"type":"hello","user_id":"u1","language":"pt","recognition":true,"synthesis":true,"voices":[{"name":"Luciana","lang":"pt-BR","default":true}]}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	hello, ok := msg.(Hello)
	if !ok {
		t.Fatalf("message type = %T, want Hello", msg)
	}
	if hello.UserID != "u1" || hello.Language != "pt" || !hello.Recognition || !hello.Synthesis {
		t.Fatalf("unexpected hello: %+v", hello)
	}
	if len(hello.Voices) != 1 || hello.Voices[0].Lang != "pt-BR" {
		t.Fatalf("voices = %+v, want one pt-BR voice", hello.Voices)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","action":"start_call"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.Action != ActionStartCall {
		t.Fatalf("Action = %q, want %q", control.Action, ActionStartCall)
	}
}

func TestParseClientMessageRejectsUnknownControlAction(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_control","action":"reboot"}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRecognitionResult(t *testing.T) {
	raw := []byte(`{"type":"recognition_result","text":"i feel anxious","is_final":true}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	result, ok := msg.(RecognitionResult)
	if !ok {
		t.Fatalf("message type = %T, want RecognitionResult", msg)
	}
	if result.Text != "i feel anxious" || !result.IsFinal {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseClientMessageRejectsInvalidSpeakResult(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"speak_result","utterance_id":"","outcome":""}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func BenchmarkParseClientMessageRecognitionResult(b *testing.B) {
	raw := []byte(`{"type":"recognition_result","text":"it has been a long week and i am tired","is_final":false}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(RecognitionResult); !ok {
			b.Fatalf("message type = %T, want RecognitionResult", msg)
		}
	}
}
