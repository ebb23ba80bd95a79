package httpapi

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/solacehq/solace/internal/protocol"
	"github.com/solacehq/solace/internal/speech"
)

// wsSender enqueues one outbound websocket message. It reports false when
// the outbound queue is saturated or closed.
type wsSender func(msg any) bool

// remoteRecognition is a speech.RecognitionEngine whose capture hardware
// lives in the connected browser. Start sends a command downstream; results
// flow back through HandleResult/HandleError/HandleEnded from the read loop.
type remoteRecognition struct {
	send wsSender

	mu     sync.Mutex
	active bool
	events chan speech.RecognitionEvent
}

func newRemoteRecognition(send wsSender) *remoteRecognition {
	return &remoteRecognition{send: send}
}

func (r *remoteRecognition) Start(cfg speech.RecognitionConfig) (<-chan speech.RecognitionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil, fmt.Errorf("recognition session already active")
	}
	if !r.send(protocol.RecognitionStart{
		Type:            protocol.TypeRecognitionStart,
		Language:        cfg.Language,
		Continuous:      cfg.Continuous,
		InterimResults:  cfg.InterimResults,
		MaxAlternatives: cfg.MaxAlternatives,
	}) {
		return nil, fmt.Errorf("connection closed")
	}
	r.active = true
	r.events = make(chan speech.RecognitionEvent, 16)
	return r.events, nil
}

func (r *remoteRecognition) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.active = false
	close(r.events)
	r.send(protocol.Envelope{Type: protocol.TypeRecognitionAbort})
}

func (r *remoteRecognition) HandleResult(text string, isFinal bool) {
	evtType := speech.RecognitionInterim
	if isFinal {
		evtType = speech.RecognitionFinal
	}
	r.emit(speech.RecognitionEvent{Type: evtType, Text: text})
}

func (r *remoteRecognition) HandleError(kind string) {
	r.emit(speech.RecognitionEvent{Type: speech.RecognitionFailed, ErrorKind: speech.RecognitionErrorKind(kind)})
}

// HandleEnded mirrors the browser engine's session end.
func (r *remoteRecognition) HandleEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.active = false
	close(r.events)
}

// Close tears down any live session without signaling the browser, used when
// the websocket itself is gone.
func (r *remoteRecognition) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.active = false
	close(r.events)
}

func (r *remoteRecognition) emit(evt speech.RecognitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	select {
	case r.events <- evt:
	default:
	}
}

// remoteSynthesis is a speech.SynthesisEngine executed by the browser's
// voice engine. Each utterance gets an ID so the browser's completion report
// resolves the matching Speak call.
type remoteSynthesis struct {
	send   wsSender
	voices []speech.Voice

	mu       sync.Mutex
	pending  map[string]chan speech.SpeakResult
	speaking bool
	closed   bool
}

func newRemoteSynthesis(send wsSender, voices []protocol.VoiceInfo) *remoteSynthesis {
	vs := make([]speech.Voice, 0, len(voices))
	for _, v := range voices {
		vs = append(vs, speech.Voice{Name: v.Name, Lang: v.Lang, Default: v.Default})
	}
	return &remoteSynthesis{
		send:    send,
		voices:  vs,
		pending: make(map[string]chan speech.SpeakResult),
	}
}

func (s *remoteSynthesis) Voices() []speech.Voice {
	return s.voices
}

func (s *remoteSynthesis) Speak(u speech.Utterance) (<-chan speech.SpeakResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("connection closed")
	}
	id := uuid.NewString()
	ch := make(chan speech.SpeakResult, 1)
	if !s.send(protocol.Speak{
		Type:        protocol.TypeSpeak,
		UtteranceID: id,
		Text:        u.Text,
		Lang:        u.Lang,
		Voice:       u.Voice,
		Rate:        u.Rate,
		Pitch:       u.Pitch,
	}) {
		return nil, fmt.Errorf("connection closed")
	}
	s.pending[id] = ch
	s.speaking = true
	return ch, nil
}

func (s *remoteSynthesis) Cancel() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.send(protocol.Envelope{Type: protocol.TypeSynthesisCancel})
	}
}

func (s *remoteSynthesis) Resume() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.send(protocol.Envelope{Type: protocol.TypeSynthesisResume})
	}
}

func (s *remoteSynthesis) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *remoteSynthesis) HandleResult(utteranceID, outcome, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.pending[utteranceID]
	if !ok {
		return
	}
	delete(s.pending, utteranceID)
	if len(s.pending) == 0 {
		s.speaking = false
	}
	ch <- speech.SpeakResult{Outcome: speech.SpeakOutcome(outcome), Detail: detail}
	close(ch)
}

// Close resolves every pending utterance as interrupted so blocked Speak
// calls return after the websocket drops.
func (s *remoteSynthesis) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.speaking = false
	for id, ch := range s.pending {
		delete(s.pending, id)
		ch <- speech.SpeakResult{Outcome: speech.SpeakInterrupted}
		close(ch)
	}
}
