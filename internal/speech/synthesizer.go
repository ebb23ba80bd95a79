package speech

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// keepAliveInterval nudges engines that silently pause long utterances.
const keepAliveInterval = 5 * time.Second

// SynthesisAdapter turns a SynthesisEngine into a blocking speak call with
// the semantics the conversation loop needs: any in-flight utterance is
// canceled before a new one starts, and an utterance cut short by
// cancellation counts as finished, not failed.
type SynthesisAdapter struct {
	engine SynthesisEngine
	rate   float64
	pitch  float64
}

func NewSynthesisAdapter(engine SynthesisEngine) *SynthesisAdapter {
	return &SynthesisAdapter{engine: engine, rate: 1.0, pitch: 1.0}
}

// Speak voices text in the given language and blocks until the utterance
// finishes or is interrupted. Interruption is a normal outcome and returns
// nil. Cancelling ctx interrupts playback.
func (a *SynthesisAdapter) Speak(ctx context.Context, text, language string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	a.engine.Cancel()

	locale := SynthesisLocale(language)
	u := Utterance{
		Text:  text,
		Lang:  locale,
		Voice: a.pickVoice(locale),
		Rate:  a.rate,
		Pitch: a.pitch,
	}

	results, err := a.engine.Speak(u)
	if err != nil {
		return fmt.Errorf("speak: %w", err)
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			a.engine.Cancel()
			// Drain the terminal result so the engine can retire the utterance.
			<-results
			return nil
		case <-keepAlive.C:
			if a.engine.Speaking() {
				a.engine.Resume()
			}
		case res, ok := <-results:
			if !ok {
				return nil
			}
			switch res.Outcome {
			case SpeakCompleted, SpeakInterrupted, SpeakCanceled:
				return nil
			default:
				if res.Detail == "interrupted" || res.Detail == "canceled" {
					return nil
				}
				return fmt.Errorf("speak: %s", res.Detail)
			}
		}
	}
}

// StopAll interrupts whatever is playing. Pending Speak calls return nil.
func (a *SynthesisAdapter) StopAll() {
	a.engine.Cancel()
}

// pickVoice prefers an exact locale match, then a same-language voice, then
// the engine default. Among matches a natural-sounding named voice wins.
func (a *SynthesisAdapter) pickVoice(locale string) string {
	voices := a.engine.Voices()
	if len(voices) == 0 {
		return ""
	}

	base := locale
	if i := strings.IndexByte(locale, '-'); i > 0 {
		base = locale[:i]
	}

	var exact, prefix []Voice
	for _, v := range voices {
		switch {
		case strings.EqualFold(v.Lang, locale):
			exact = append(exact, v)
		case strings.HasPrefix(strings.ToLower(v.Lang), strings.ToLower(base)):
			prefix = append(prefix, v)
		}
	}

	for _, pool := range [][]Voice{exact, prefix} {
		if len(pool) == 0 {
			continue
		}
		for _, v := range pool {
			name := strings.ToLower(v.Name)
			if strings.Contains(name, "natural") || strings.Contains(name, "google") {
				return v.Name
			}
		}
		return pool[0].Name
	}

	for _, v := range voices {
		if v.Default {
			return v.Name
		}
	}
	return voices[0].Name
}
