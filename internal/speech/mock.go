package speech

import (
	"fmt"
	"sync"
)

// MockRecognitionEngine is a scriptable engine used when no real capture
// backend is wired and by tests that drive the controller by hand.
type MockRecognitionEngine struct {
	mu         sync.Mutex
	events     chan RecognitionEvent
	active     bool
	starts     int
	aborts     int
	failStarts int
	lastCfg    RecognitionConfig
}

func NewMockRecognitionEngine() *MockRecognitionEngine { return &MockRecognitionEngine{} }

func (m *MockRecognitionEngine) Start(cfg RecognitionConfig) (<-chan RecognitionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.failStarts > 0 {
		m.failStarts--
		return nil, fmt.Errorf("capture device busy")
	}
	if m.active {
		return nil, fmt.Errorf("recognition session already active")
	}
	m.active = true
	m.lastCfg = cfg
	m.events = make(chan RecognitionEvent, 16)
	return m.events, nil
}

func (m *MockRecognitionEngine) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborts++
	if m.active {
		m.active = false
		close(m.events)
	}
}

// FailNextStarts makes the next n Start calls fail.
func (m *MockRecognitionEngine) FailNextStarts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStarts = n
}

func (m *MockRecognitionEngine) EmitInterim(text string) {
	m.emit(RecognitionEvent{Type: RecognitionInterim, Text: text})
}

func (m *MockRecognitionEngine) EmitFinal(text string) {
	m.emit(RecognitionEvent{Type: RecognitionFinal, Text: text})
}

func (m *MockRecognitionEngine) EmitError(kind RecognitionErrorKind) {
	m.emit(RecognitionEvent{Type: RecognitionFailed, ErrorKind: kind})
}

// EndSession ends the current capture session the way silence does.
func (m *MockRecognitionEngine) EndSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.active = false
		close(m.events)
	}
}

func (m *MockRecognitionEngine) emit(evt RecognitionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.events <- evt
	}
}

func (m *MockRecognitionEngine) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func (m *MockRecognitionEngine) Aborts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborts
}

func (m *MockRecognitionEngine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *MockRecognitionEngine) LastConfig() RecognitionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCfg
}

// MockSynthesisEngine records utterances and lets callers script outcomes.
type MockSynthesisEngine struct {
	mu           sync.Mutex
	voices       []Voice
	spoken       []Utterance
	current      chan SpeakResult
	speaking     bool
	resumes      int
	cancels      int
	autoComplete bool
	startErr     error
}

func NewMockSynthesisEngine() *MockSynthesisEngine {
	return &MockSynthesisEngine{autoComplete: true}
}

func (m *MockSynthesisEngine) SetVoices(voices []Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = voices
}

// HoldUtterances stops auto-completing so tests can finish them by hand.
func (m *MockSynthesisEngine) HoldUtterances() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoComplete = false
}

func (m *MockSynthesisEngine) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

func (m *MockSynthesisEngine) Voices() []Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voices
}

func (m *MockSynthesisEngine) Speak(u Utterance) (<-chan SpeakResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.spoken = append(m.spoken, u)
	m.current = make(chan SpeakResult, 1)
	if m.autoComplete {
		m.current <- SpeakResult{Outcome: SpeakCompleted}
		close(m.current)
		m.speaking = false
		return m.current, nil
	}
	m.speaking = true
	return m.current, nil
}

func (m *MockSynthesisEngine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	if m.speaking {
		m.speaking = false
		m.current <- SpeakResult{Outcome: SpeakInterrupted}
		close(m.current)
	}
}

func (m *MockSynthesisEngine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
}

func (m *MockSynthesisEngine) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// FinishCurrent completes the held utterance with the given outcome.
func (m *MockSynthesisEngine) FinishCurrent(outcome SpeakOutcome, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.speaking {
		return
	}
	m.speaking = false
	m.current <- SpeakResult{Outcome: outcome, Detail: detail}
	close(m.current)
}

func (m *MockSynthesisEngine) Spoken() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.spoken))
	copy(out, m.spoken)
	return out
}

func (m *MockSynthesisEngine) Cancels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels
}
