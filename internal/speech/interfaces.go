package speech

// RecognitionConfig mirrors the knobs of browser-native recognition engines.
type RecognitionConfig struct {
	Language        string
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
}

type RecognitionEventType string

const (
	RecognitionInterim RecognitionEventType = "interim"
	RecognitionFinal   RecognitionEventType = "final"
	RecognitionEnded   RecognitionEventType = "ended"
	RecognitionFailed  RecognitionEventType = "error"
)

// RecognitionErrorKind matches the platform's error vocabulary.
type RecognitionErrorKind string

const (
	ErrKindNoSpeech     RecognitionErrorKind = "no-speech"
	ErrKindAborted      RecognitionErrorKind = "aborted"
	ErrKindNotAllowed   RecognitionErrorKind = "not-allowed"
	ErrKindAudioCapture RecognitionErrorKind = "audio-capture"
	ErrKindNetwork      RecognitionErrorKind = "network"
)

type RecognitionEvent struct {
	Type      RecognitionEventType
	Text      string
	ErrorKind RecognitionErrorKind
}

// RecognitionEngine is the vendor seam for speech recognition. Each Start
// begins a fresh capture session; the returned channel is closed when the
// session ends. Start fails while a previous session still holds the capture
// device.
type RecognitionEngine interface {
	Start(cfg RecognitionConfig) (<-chan RecognitionEvent, error)
	Abort()
}

// Voice describes one synthesis voice offered by the engine.
type Voice struct {
	Name    string
	Lang    string
	Default bool
}

// Utterance is one piece of text handed to the synthesis engine.
type Utterance struct {
	Text  string
	Lang  string
	Voice string
	Rate  float64
	Pitch float64
}

type SpeakOutcome string

const (
	SpeakCompleted   SpeakOutcome = "completed"
	SpeakInterrupted SpeakOutcome = "interrupted"
	SpeakCanceled    SpeakOutcome = "canceled"
	SpeakFailed      SpeakOutcome = "error"
)

type SpeakResult struct {
	Outcome SpeakOutcome
	Detail  string
}

// SynthesisEngine is the vendor seam for text-to-speech. Speak queues an
// utterance and reports its terminal outcome on the returned channel. Resume
// nudges an engine that paused itself mid-utterance (a known platform stall).
type SynthesisEngine interface {
	Voices() []Voice
	Speak(u Utterance) (<-chan SpeakResult, error)
	Cancel()
	Resume()
	Speaking() bool
}

// Capabilities reports which speech features the connected platform offers.
type Capabilities struct {
	Recognition bool
	Synthesis   bool
}
