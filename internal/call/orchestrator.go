package call

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/solacehq/solace/internal/analysis"
	"github.com/solacehq/solace/internal/chatstream"
	"github.com/solacehq/solace/internal/observability"
	"github.com/solacehq/solace/internal/speech"
)

const defaultDebounce = 3 * time.Second

// ChatStreamer is the turn-classification backend seam.
type ChatStreamer interface {
	Stream(ctx context.Context, message string, history []chatstream.Message, cb chatstream.Callbacks)
}

// Synthesizer voices assistant replies.
type Synthesizer interface {
	Speak(ctx context.Context, text, language string) error
	StopAll()
}

// Recognizer captures user speech. The orchestrator is handed in as the
// recognition handler when the recognizer is built.
type Recognizer interface {
	Start(language string) error
	Resume()
	Stop()
}

const (
	noticePermission = "Microphone access is needed for voice calls. Please allow it and try again."
	noticeCapability = "Voice calls aren't supported on this device."
	noticeEscalated  = "A human support specialist has been notified and will reach out."
	noticeMediumRisk = "It sounds like things are heavy right now. You're not alone in this."
)

// Options wires an Orchestrator. Chat, Synth, and NewRecognizer are required.
type Options struct {
	Chat          ChatStreamer
	Synth         Synthesizer
	NewRecognizer func(h speech.RecognitionHandler) Recognizer

	Listener Listener
	Logger   *log.Logger
	Metrics  *observability.Metrics

	Language string
	Greeting string
	Debounce time.Duration

	// CheckPermission probes microphone access before a call starts. Nil
	// skips the probe.
	CheckPermission func(ctx context.Context) error

	// Now is the clock used for debounce and pacing decisions.
	Now func() time.Time

	SessionID string
	UserID    string
}

// Orchestrator runs the conversation loop for one voice call: listen for a
// final transcript, classify it, speak the reply, listen again. All state is
// guarded by one mutex; blocking work (synthesis, the chat stream) runs in
// goroutines that re-enter through generation-checked methods, so callbacks
// from a call that has ended mutate nothing.
type Orchestrator struct {
	chat          ChatStreamer
	synth         Synthesizer
	newRecognizer func(h speech.RecognitionHandler) Recognizer
	listener      Listener
	logger        *log.Logger
	metrics       *observability.Metrics

	language        string
	greeting        string
	debounce        time.Duration
	checkPermission func(ctx context.Context) error
	now             func() time.Time
	sessionID       string
	userID          string

	mu             sync.Mutex
	state          State
	gen            int
	stopping       bool
	connected      bool
	escalated      bool
	partial        string
	currentEmotion *chatstream.EmotionAnalysis
	turns          []Turn
	processing     bool
	lastAccepted   time.Time
	listenStart    time.Time
	turnStart      time.Time
	recStarted     bool
	rec            Recognizer
	reply          strings.Builder
	callCtx        context.Context
	callCancel     context.CancelFunc
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Chat == nil {
		return nil, fmt.Errorf("call: chat streamer is required")
	}
	if opts.Synth == nil {
		return nil, fmt.Errorf("call: synthesizer is required")
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		chat:            opts.Chat,
		synth:           opts.Synth,
		newRecognizer:   opts.NewRecognizer,
		listener:        opts.Listener,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		language:        opts.Language,
		greeting:        opts.Greeting,
		debounce:        opts.Debounce,
		checkPermission: opts.CheckPermission,
		now:             opts.Now,
		sessionID:       opts.SessionID,
		userID:          opts.UserID,
		state:           StateIdle,
	}, nil
}

// StartCall begins a new call: capability and permission checks, a spoken
// greeting, then the listening loop. Terminal setup failures leave the
// orchestrator idle.
func (o *Orchestrator) StartCall(ctx context.Context) error {
	o.mu.Lock()
	if o.connected {
		o.mu.Unlock()
		return fmt.Errorf("call already active")
	}
	if o.newRecognizer == nil {
		o.listener.Notified(Notice{Level: NoticeAlert, Message: noticeCapability})
		o.mu.Unlock()
		return fmt.Errorf("speech recognition unsupported")
	}
	o.mu.Unlock()

	if o.checkPermission != nil {
		if err := o.checkPermission(ctx); err != nil {
			o.mu.Lock()
			o.listener.Notified(Notice{Level: NoticeAlert, Message: noticePermission})
			o.mu.Unlock()
			return fmt.Errorf("microphone permission: %w", err)
		}
	}

	o.mu.Lock()
	if o.connected {
		o.mu.Unlock()
		return fmt.Errorf("call already active")
	}
	o.gen++
	o.stopping = false
	o.connected = true
	o.escalated = false
	o.processing = false
	o.recStarted = false
	o.partial = ""
	o.currentEmotion = nil
	o.turns = nil
	o.lastAccepted = time.Time{}
	o.rec = o.newRecognizer(o)
	o.callCtx, o.callCancel = context.WithCancel(context.Background())
	if o.sessionID != "" || o.userID != "" {
		o.callCtx = chatstream.WithSession(o.callCtx, o.sessionID, o.userID)
	}
	o.setStateLocked(StateSpeaking)
	o.reply.Reset()
	gen := o.gen
	callCtx := o.callCtx
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.ActiveCalls.Inc()
	}
	o.countEvent("call_started")
	go o.greet(callCtx, gen)
	return nil
}

func (o *Orchestrator) greet(ctx context.Context, gen int) {
	if o.greeting != "" {
		if err := o.synth.Speak(ctx, o.greeting, o.language); err != nil {
			o.logger.Printf("call: greeting synthesis failed: %v", err)
		}
	}
	o.enterListening(gen)
}

// EndCall tears the call down from any state. Safe to call repeatedly; once
// it returns, late stream or synthesis callbacks are ignored.
func (o *Orchestrator) EndCall() {
	o.mu.Lock()
	if !o.connected {
		o.mu.Unlock()
		return
	}
	o.stopping = true
	o.gen++
	o.connected = false
	o.processing = false
	o.partial = ""
	rec := o.rec
	cancel := o.callCancel
	o.setStateLocked(StateIdle)
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.synth.StopAll()
	if rec != nil {
		rec.Stop()
	}
	if o.metrics != nil {
		o.metrics.ActiveCalls.Dec()
		o.metrics.CallEvents.WithLabelValues("call_ended").Inc()
	}
}

// Snapshot copies the current call state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:       o.state,
		Connected:   o.connected,
		Escalated:   o.escalated,
		PartialText: o.partial,
		Turns:       make([]Turn, len(o.turns)),
	}
	copy(snap.Turns, o.turns)
	if o.currentEmotion != nil {
		e := *o.currentEmotion
		snap.CurrentEmotion = &e
	}
	return snap
}

// HandleInterim implements speech.RecognitionHandler.
func (o *Orchestrator) HandleInterim(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopping || o.state != StateListening {
		return
	}
	o.partial = text
	o.listener.PartialTranscript(text)
}

// HandleFinal implements speech.RecognitionHandler. The recognizer has
// already suspended capture by the time this runs; a rejected transcript
// must therefore resume it.
func (o *Orchestrator) HandleFinal(text string) {
	o.mu.Lock()
	if o.stopping || !o.connected || o.state != StateListening || o.processing {
		o.mu.Unlock()
		return
	}

	text = strings.TrimSpace(text)
	now := o.now()
	if text == "" || (!o.lastAccepted.IsZero() && now.Sub(o.lastAccepted) < o.debounce) {
		o.countEvent("turn_rejected")
		rec := o.rec
		o.mu.Unlock()
		rec.Resume()
		return
	}

	o.lastAccepted = now
	o.turnStart = now
	o.processing = true
	patterns := analysis.Analyze(text, now.Sub(o.listenStart))
	turn := Turn{Role: chatstream.RoleUser, Text: text, Patterns: &patterns, At: now}
	o.turns = append(o.turns, turn)
	o.partial = ""
	o.listener.TurnAppended(turn)
	o.setStateLocked(StateThinking)
	if patterns.Urgency == analysis.UrgencyHigh {
		o.escalateLocked("heuristic")
	}
	history := o.historyLocked(len(o.turns) - 1)
	gen := o.gen
	callCtx := o.callCtx
	o.mu.Unlock()

	o.countEvent("turn_accepted")
	go o.runTurn(callCtx, gen, analysis.Annotate(text, patterns), history)
}

// HandleRecognitionError implements speech.RecognitionHandler.
func (o *Orchestrator) HandleRecognitionError(kind speech.RecognitionErrorKind) {
	switch kind {
	case speech.ErrKindNotAllowed, speech.ErrKindAudioCapture:
		o.mu.Lock()
		o.listener.Notified(Notice{Level: NoticeAlert, Message: noticePermission})
		o.mu.Unlock()
		o.EndCall()
	default:
		o.logger.Printf("call: recognition error %q, continuing", kind)
	}
}

func (o *Orchestrator) runTurn(ctx context.Context, gen int, message string, history []chatstream.Message) {
	firstDelta := true
	cb := chatstream.Callbacks{
		OnEmotion: func(e chatstream.EmotionAnalysis) { o.onEmotion(gen, e) },
		OnDelta: func(d string) {
			if firstDelta {
				firstDelta = false
				o.observeFirstReply()
			}
			o.onDelta(gen, d)
		},
		OnDone:  func() { o.onStreamDone(ctx, gen) },
		OnError: func(msg string) { o.onStreamError(gen, msg) },
	}
	o.chat.Stream(ctx, message, history, cb)
}

func (o *Orchestrator) onEmotion(gen int, e chatstream.EmotionAnalysis) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.staleLocked(gen) {
		return
	}
	o.currentEmotion = &e
	o.listener.EmotionUpdated(e)
	switch e.RiskLevel {
	case chatstream.RiskHigh:
		o.escalateLocked("server")
	case chatstream.RiskMedium:
		if !o.escalated {
			o.listener.Notified(Notice{Level: NoticeWarning, Message: noticeMediumRisk})
		}
	}
}

func (o *Orchestrator) onDelta(gen int, d string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.staleLocked(gen) {
		return
	}
	o.reply.WriteString(d)
	o.listener.AssistantDelta(d)
}

func (o *Orchestrator) onStreamDone(ctx context.Context, gen int) {
	o.mu.Lock()
	if o.staleLocked(gen) {
		o.mu.Unlock()
		return
	}
	o.processing = false
	reply := o.reply.String()
	o.reply.Reset()
	turn := Turn{Role: chatstream.RoleAssistant, Text: reply, Emotion: o.currentEmotion, At: o.now()}
	o.turns = append(o.turns, turn)
	o.listener.TurnAppended(turn)
	o.setStateLocked(StateSpeaking)
	o.mu.Unlock()

	if reply != "" {
		if err := o.synth.Speak(ctx, reply, o.language); err != nil {
			o.logger.Printf("call: reply synthesis failed: %v", err)
		}
	}
	o.enterListening(gen)
}

func (o *Orchestrator) onStreamError(gen int, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.staleLocked(gen) {
		return
	}
	o.processing = false
	o.reply.Reset()
	o.countEvent("stream_error")
	o.listener.Notified(Notice{Level: NoticeWarning, Message: msg})
	o.enterListeningLocked(gen)
}

func (o *Orchestrator) enterListening(gen int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enterListeningLocked(gen)
}

func (o *Orchestrator) enterListeningLocked(gen int) {
	if o.staleLocked(gen) {
		return
	}
	o.partial = ""
	o.listenStart = o.now()
	o.setStateLocked(StateListening)
	if !o.recStarted {
		if err := o.rec.Start(o.language); err != nil {
			o.logger.Printf("call: recognition start failed: %v", err)
			o.listener.Notified(Notice{Level: NoticeAlert, Message: noticePermission})
			go o.EndCall()
			return
		}
		o.recStarted = true
		return
	}
	o.rec.Resume()
}

func (o *Orchestrator) escalateLocked(source string) {
	if o.escalated {
		return
	}
	o.escalated = true
	o.listener.Escalated()
	o.listener.Notified(Notice{Level: NoticeAlert, Message: noticeEscalated, Persistent: true})
	if o.metrics != nil {
		o.metrics.Escalations.WithLabelValues(source).Inc()
	}
}

func (o *Orchestrator) setStateLocked(s State) {
	if o.state == s {
		return
	}
	o.state = s
	o.listener.StateChanged(s)
}

func (o *Orchestrator) staleLocked(gen int) bool {
	return o.stopping || gen != o.gen || !o.connected
}

func (o *Orchestrator) historyLocked(n int) []chatstream.Message {
	history := make([]chatstream.Message, 0, n)
	for _, t := range o.turns[:n] {
		history = append(history, chatstream.Message{Role: t.Role, Content: t.Text})
	}
	return history
}

func (o *Orchestrator) observeFirstReply() {
	o.mu.Lock()
	start := o.turnStart
	o.mu.Unlock()
	if o.metrics != nil && !start.IsZero() {
		o.metrics.ObserveFirstReplyLatency(time.Since(start))
	}
}

func (o *Orchestrator) countEvent(event string) {
	if o.metrics != nil {
		o.metrics.CallEvents.WithLabelValues(event).Inc()
	}
}
