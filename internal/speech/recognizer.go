package speech

import (
	"fmt"
	"sync"
	"time"

	"github.com/solacehq/solace/internal/reliability"
)

const (
	restartDelay      = 300 * time.Millisecond
	restartRetryDelay = time.Second
)

// RecognitionHandler receives controller output. Calls arrive from the
// controller's internal goroutine, never concurrently with each other.
type RecognitionHandler interface {
	HandleInterim(text string)
	HandleFinal(text string)
	HandleRecognitionError(kind RecognitionErrorKind)
}

// RecognitionController wraps a RecognitionEngine with continuous-capture
// semantics: engine sessions end on their own after silence, so the
// controller restarts them until told to stop. Capture is suspended before a
// final transcript is handed to the handler and stays suspended until Resume,
// which keeps the engine from hearing the app's own synthesized reply.
type RecognitionController struct {
	engine  RecognitionEngine
	handler RecognitionHandler

	mu        sync.Mutex
	running   bool
	suspended bool
	locale    string
	gen       int
	timer     *time.Timer
}

func NewRecognitionController(engine RecognitionEngine, handler RecognitionHandler) *RecognitionController {
	return &RecognitionController{engine: engine, handler: handler}
}

// Start begins continuous capture in the given language.
func (c *RecognitionController) Start(language string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("recognition already running")
	}
	c.running = true
	c.suspended = false
	c.locale = RecognitionLocale(language)
	if err := c.startSessionLocked(); err != nil {
		c.running = false
		return fmt.Errorf("start recognition: %w", err)
	}
	return nil
}

// Resume re-opens capture after a final transcript suspended it. It is a
// no-op once Stop has been called.
func (c *RecognitionController) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.suspended {
		return
	}
	c.suspended = false
	if err := c.startSessionLocked(); err != nil {
		c.scheduleRestartLocked(restartRetryDelay, false)
	}
}

// Stop ends capture for good. Safe to call more than once.
func (c *RecognitionController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running && !c.suspended {
		return
	}
	c.running = false
	c.suspended = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.engine.Abort()
}

func (c *RecognitionController) startSessionLocked() error {
	events, err := c.engine.Start(RecognitionConfig{
		Language:        c.locale,
		Continuous:      true,
		InterimResults:  true,
		MaxAlternatives: 1,
	})
	if err != nil {
		return err
	}
	c.gen++
	go c.consume(events, c.gen)
	return nil
}

func (c *RecognitionController) consume(events <-chan RecognitionEvent, gen int) {
	for evt := range events {
		c.mu.Lock()
		stale := gen != c.gen || !c.running
		c.mu.Unlock()
		if stale {
			return
		}

		switch evt.Type {
		case RecognitionInterim:
			c.handler.HandleInterim(evt.Text)
		case RecognitionFinal:
			// Suspend before dispatch so the handler observes a quiet engine.
			c.mu.Lock()
			c.suspended = true
			c.gen++
			c.mu.Unlock()
			c.engine.Abort()
			c.handler.HandleFinal(evt.Text)
			return
		case RecognitionFailed:
			switch {
			case evt.ErrorKind == ErrKindNoSpeech || evt.ErrorKind == ErrKindAborted:
				// Routine session churn; the restart policy covers it.
			case reliability.IsTerminalRecognitionError(string(evt.ErrorKind)):
				c.mu.Lock()
				c.running = false
				c.suspended = false
				c.gen++
				c.mu.Unlock()
				c.engine.Abort()
				c.handler.HandleRecognitionError(ErrKindNotAllowed)
				return
			default:
				c.handler.HandleRecognitionError(evt.ErrorKind)
			}
		}
	}

	// Session ended on its own.
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.running || c.suspended {
		return
	}
	c.scheduleRestartLocked(restartDelay, true)
}

func (c *RecognitionController) scheduleRestartLocked(delay time.Duration, allowRetry bool) {
	gen := c.gen
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if gen != c.gen || !c.running || c.suspended {
			c.mu.Unlock()
			return
		}
		err := c.startSessionLocked()
		if err != nil {
			if allowRetry {
				c.scheduleRestartLocked(restartRetryDelay, false)
				c.mu.Unlock()
				return
			}
			c.running = false
			c.gen++
			c.mu.Unlock()
			c.handler.HandleRecognitionError(ErrKindAudioCapture)
			return
		}
		c.mu.Unlock()
	})
}
