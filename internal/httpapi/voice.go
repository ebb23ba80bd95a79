package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solacehq/solace/internal/call"
	"github.com/solacehq/solace/internal/chatstream"
	"github.com/solacehq/solace/internal/protocol"
	"github.com/solacehq/solace/internal/session"
	"github.com/solacehq/solace/internal/speech"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
)

type turnEvent struct {
	Type protocol.MessageType `json:"type"`
	Turn call.Turn            `json:"turn"`
}

type emotionEvent struct {
	Type    protocol.MessageType       `json:"type"`
	Emotion chatstream.EmotionAnalysis `json:"emotion"`
}

// wsListener forwards orchestrator events to the websocket client and keeps
// the server-side session record in step with the call.
type wsListener struct {
	send      wsSender
	sessions  *session.Manager
	sessionID string
}

func (l *wsListener) StateChanged(s call.State) {
	l.send(protocol.CallState{Type: protocol.TypeCallState, State: string(s)})
}

func (l *wsListener) PartialTranscript(text string) {
	l.send(protocol.Partial{Type: protocol.TypePartial, Text: text})
}

func (l *wsListener) AssistantDelta(text string) {
	l.send(protocol.AssistantDelta{Type: protocol.TypeAssistantDelta, Text: text})
}

func (l *wsListener) TurnAppended(t call.Turn) {
	l.send(turnEvent{Type: protocol.TypeTurn, Turn: t})
}

func (l *wsListener) EmotionUpdated(e chatstream.EmotionAnalysis) {
	l.send(emotionEvent{Type: protocol.TypeEmotion, Emotion: e})
}

func (l *wsListener) Escalated() {
	l.send(protocol.Envelope{Type: protocol.TypeEscalated})
	if l.sessions != nil {
		_ = l.sessions.Escalate(l.sessionID)
	}
}

func (l *wsListener) Notified(n call.Notice) {
	l.send(protocol.Notice{
		Type:       protocol.TypeNotice,
		Level:      string(n.Level),
		Message:    n.Message,
		Persistent: n.Persistent,
	})
}

// handleVoiceWS bridges one browser voice client. The browser reports its
// speech capabilities in a hello message and then acts as the remote capture
// and playback hardware; the conversation loop itself runs here.
func (s *Server) handleVoiceWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)
	var senderClosed atomic.Bool
	enqueue := func(msg any) bool {
		if senderClosed.Load() {
			return false
		}
		select {
		case outbound <- msg:
			s.countWS("outbound", msg)
			return true
		default:
			// Keep websocket writes single-threaded; drop if the outbound
			// queue is saturated.
			s.logger.Printf("httpapi: outbound queue full, dropping message")
			return false
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	hello, ok := s.readHello(conn)
	if !ok {
		senderClosed.Store(true)
		cancel()
		<-writerDone
		return
	}

	language := hello.Language
	if language == "" {
		language = s.cfg.CallLanguage
	}
	caps := speech.Capabilities{Recognition: hello.Recognition, Synthesis: hello.Synthesis}
	sess := s.sessions.Create(hello.UserID, language)

	rec := newRemoteRecognition(enqueue)
	var remoteSynth *remoteSynthesis
	var synthEngine speech.SynthesisEngine
	if caps.Synthesis {
		remoteSynth = newRemoteSynthesis(enqueue, hello.Voices)
		synthEngine = remoteSynth
	} else {
		// No playback on the client; utterances complete immediately so the
		// conversation loop still advances.
		synthEngine = speech.NewMockSynthesisEngine()
	}

	var newRec func(h speech.RecognitionHandler) call.Recognizer
	if caps.Recognition {
		newRec = func(h speech.RecognitionHandler) call.Recognizer {
			return speech.NewRecognitionController(rec, h)
		}
	}

	orch, err := call.New(call.Options{
		Chat:          s.chat,
		Synth:         speech.NewSynthesisAdapter(synthEngine),
		NewRecognizer: newRec,
		Listener:      &wsListener{send: enqueue, sessions: s.sessions, sessionID: sess.ID},
		Logger:        s.logger,
		Metrics:       s.metrics,
		Language:      language,
		Greeting:      s.cfg.CallGreeting,
		Debounce:      s.cfg.CallDebounceWindow,
		SessionID:     sess.ID,
		UserID:        hello.UserID,
	})
	if err != nil {
		s.logger.Printf("httpapi: build call orchestrator: %v", err)
		senderClosed.Store(true)
		cancel()
		<-writerDone
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			enqueue(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}
		s.countWS("inbound", parsed)

		switch m := parsed.(type) {
		case protocol.ClientControl:
			switch m.Action {
			case protocol.ActionStartCall:
				if err := orch.StartCall(ctx); err != nil {
					s.logger.Printf("httpapi: start call: %v", err)
					enqueue(protocol.ErrorEvent{
						Type:   protocol.TypeErrorEvent,
						Code:   "start_call_failed",
						Detail: err.Error(),
					})
				}
			case protocol.ActionEndCall:
				orch.EndCall()
			}
		case protocol.RecognitionResult:
			rec.HandleResult(m.Text, m.IsFinal)
		case protocol.RecognitionError:
			rec.HandleError(m.Kind)
		case protocol.RecognitionEnded:
			rec.HandleEnded()
		case protocol.SpeakResult:
			if remoteSynth != nil {
				remoteSynth.HandleResult(m.UtteranceID, m.Outcome, m.Detail)
			}
		case protocol.Hello:
			// Duplicate hello; capabilities are fixed for the connection.
		}
	}

	orch.EndCall()
	rec.Close()
	if remoteSynth != nil {
		remoteSynth.Close()
	}
	_, _ = s.sessions.End(sess.ID)
	senderClosed.Store(true)
	cancel()
	<-writerDone
}

// readHello waits for the capability handshake that must open every voice
// connection.
func (s *Server) readHello(conn *websocket.Conn) (protocol.Hello, bool) {
	msgType, data, err := conn.ReadMessage()
	if err != nil || msgType != websocket.TextMessage {
		return protocol.Hello{}, false
	}
	parsed, err := protocol.ParseClientMessage(data)
	if err != nil {
		s.logger.Printf("httpapi: bad handshake: %v", err)
		return protocol.Hello{}, false
	}
	hello, ok := parsed.(protocol.Hello)
	if !ok {
		s.logger.Printf("httpapi: first message was %T, want hello", parsed)
		return protocol.Hello{}, false
	}
	return hello, true
}

func (s *Server) countWS(direction string, msg any) {
	if s.metrics == nil {
		return
	}
	if t, ok := messageTypeOf(msg); ok {
		s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.Hello:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.RecognitionResult:
		return m.Type, true
	case protocol.RecognitionError:
		return m.Type, true
	case protocol.RecognitionEnded:
		return m.Type, true
	case protocol.SpeakResult:
		return m.Type, true
	case protocol.RecognitionStart:
		return m.Type, true
	case protocol.Speak:
		return m.Type, true
	case protocol.CallState:
		return m.Type, true
	case protocol.Partial:
		return m.Type, true
	case protocol.AssistantDelta:
		return m.Type, true
	case protocol.Notice:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	case turnEvent:
		return m.Type, true
	case emotionEvent:
		return m.Type, true
	case protocol.Envelope:
		return m.Type, true
	default:
		return "", false
	}
}
