package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

// Client to server. The browser owns the actual capture and playback
// hardware; it reports engine events upward and executes engine commands.
const (
	TypeHello             MessageType = "hello"
	TypeClientControl     MessageType = "client_control"
	TypeRecognitionResult MessageType = "recognition_result"
	TypeRecognitionError  MessageType = "recognition_error"
	TypeRecognitionEnded  MessageType = "recognition_ended"
	TypeSpeakResult       MessageType = "speak_result"
)

// Server to client.
const (
	TypeRecognitionStart MessageType = "recognition_start"
	TypeRecognitionAbort MessageType = "recognition_abort"
	TypeSpeak            MessageType = "speak"
	TypeSynthesisCancel  MessageType = "synthesis_cancel"
	TypeSynthesisResume  MessageType = "synthesis_resume"
	TypeCallState        MessageType = "call_state"
	TypePartial          MessageType = "partial_transcript"
	TypeAssistantDelta   MessageType = "assistant_delta"
	TypeTurn             MessageType = "turn"
	TypeEmotion          MessageType = "emotion"
	TypeEscalated        MessageType = "escalated"
	TypeNotice           MessageType = "notice"
	TypeErrorEvent       MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type VoiceInfo struct {
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default"`
}

type Hello struct {
	Type        MessageType `json:"type"`
	UserID      string      `json:"user_id,omitempty"`
	Language    string      `json:"language,omitempty"`
	Recognition bool        `json:"recognition"`
	Synthesis   bool        `json:"synthesis"`
	Voices      []VoiceInfo `json:"voices,omitempty"`
}

const (
	ActionStartCall = "start_call"
	ActionEndCall   = "end_call"
)

type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

type RecognitionResult struct {
	Type    MessageType `json:"type"`
	Text    string      `json:"text"`
	IsFinal bool        `json:"is_final"`
}

type RecognitionError struct {
	Type MessageType `json:"type"`
	Kind string      `json:"kind"`
}

type RecognitionEnded struct {
	Type MessageType `json:"type"`
}

type SpeakResult struct {
	Type        MessageType `json:"type"`
	UtteranceID string      `json:"utterance_id"`
	Outcome     string      `json:"outcome"`
	Detail      string      `json:"detail,omitempty"`
}

type RecognitionStart struct {
	Type            MessageType `json:"type"`
	Language        string      `json:"language"`
	Continuous      bool        `json:"continuous"`
	InterimResults  bool        `json:"interim_results"`
	MaxAlternatives int         `json:"max_alternatives"`
}

type Speak struct {
	Type        MessageType `json:"type"`
	UtteranceID string      `json:"utterance_id"`
	Text        string      `json:"text"`
	Lang        string      `json:"lang"`
	Voice       string      `json:"voice,omitempty"`
	Rate        float64     `json:"rate,omitempty"`
	Pitch       float64     `json:"pitch,omitempty"`
}

type CallState struct {
	Type  MessageType `json:"type"`
	State string      `json:"state"`
}

type Partial struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type AssistantDelta struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type Notice struct {
	Type       MessageType `json:"type"`
	Level      string      `json:"level"`
	Message    string      `json:"message"`
	Persistent bool        `json:"persistent"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

// ParseClientMessage decodes and validates one inbound websocket payload.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeHello:
		var msg Hello
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Action != ActionStartCall && msg.Action != ActionEndCall {
			return nil, errors.New("invalid client_control action")
		}
		return msg, nil
	case TypeRecognitionResult:
		var msg RecognitionResult
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeRecognitionError:
		var msg RecognitionError
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Kind == "" {
			return nil, errors.New("invalid recognition_error")
		}
		return msg, nil
	case TypeRecognitionEnded:
		var msg RecognitionEnded
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeSpeakResult:
		var msg SpeakResult
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UtteranceID == "" || msg.Outcome == "" {
			return nil, errors.New("invalid speak_result")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
