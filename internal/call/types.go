package call

import (
	"time"

	"github.com/solacehq/solace/internal/analysis"
	"github.com/solacehq/solace/internal/chatstream"
)

// State names the phases of one voice call.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateThinking  State = "thinking"
	StateSpeaking  State = "speaking"
)

// Turn is one utterance by either party, with whatever metadata the turn
// produced. Turns are append-only for the life of a call.
type Turn struct {
	Role     string                      `json:"role"`
	Text     string                      `json:"text"`
	Emotion  *chatstream.EmotionAnalysis `json:"emotion,omitempty"`
	Patterns *analysis.PatternResult     `json:"speechPatterns,omitempty"`
	At       time.Time                   `json:"at"`
}

// NoticeLevel grades user-facing notices.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeAlert   NoticeLevel = "alert"
)

// Notice is a short user-facing message. Persistent notices stay on screen
// for the rest of the session; transient ones are toast-style.
type Notice struct {
	Level      NoticeLevel `json:"level"`
	Message    string      `json:"message"`
	Persistent bool        `json:"persistent"`
}

// Listener receives orchestrator output. Methods are invoked serially while
// the orchestrator holds its internal lock, so they must return quickly and
// must not call back into the orchestrator.
type Listener interface {
	StateChanged(s State)
	PartialTranscript(text string)
	AssistantDelta(text string)
	TurnAppended(t Turn)
	EmotionUpdated(e chatstream.EmotionAnalysis)
	Escalated()
	Notified(n Notice)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) StateChanged(State)                        {}
func (NopListener) PartialTranscript(string)                  {}
func (NopListener) AssistantDelta(string)                     {}
func (NopListener) TurnAppended(Turn)                         {}
func (NopListener) EmotionUpdated(chatstream.EmotionAnalysis) {}
func (NopListener) Escalated()                                {}
func (NopListener) Notified(Notice)                           {}

// Snapshot is a point-in-time copy of call state, safe to serialize.
type Snapshot struct {
	State          State                       `json:"state"`
	Connected      bool                        `json:"connected"`
	Escalated      bool                        `json:"escalated"`
	PartialText    string                      `json:"partialText"`
	CurrentEmotion *chatstream.EmotionAnalysis `json:"currentEmotion,omitempty"`
	Turns          []Turn                      `json:"turns"`
}
