package speech

import (
	"strings"
	"sync/atomic"
)

// NewFailoverSynthesis pairs a hosted synthesis engine with a local fallback.
// A quota failure from the primary flips a sticky flag and every later
// utterance goes straight to the fallback until ResetQuota clears it. The
// flag lives on the instance, not in package state, so each call session and
// each test gets its own.
func NewFailoverSynthesis(primary, fallback SynthesisEngine) *FailoverSynthesis {
	return &FailoverSynthesis{primary: primary, fallback: fallback}
}

type FailoverSynthesis struct {
	primary  SynthesisEngine
	fallback SynthesisEngine

	quotaExhausted atomic.Bool
}

func (f *FailoverSynthesis) QuotaExhausted() bool {
	return f.quotaExhausted.Load()
}

func (f *FailoverSynthesis) ResetQuota() {
	f.quotaExhausted.Store(false)
}

func (f *FailoverSynthesis) active() SynthesisEngine {
	if f.quotaExhausted.Load() {
		return f.fallback
	}
	return f.primary
}

func (f *FailoverSynthesis) Voices() []Voice {
	return f.active().Voices()
}

func (f *FailoverSynthesis) Speak(u Utterance) (<-chan SpeakResult, error) {
	if f.quotaExhausted.Load() {
		return f.fallback.Speak(u)
	}

	results, err := f.primary.Speak(u)
	if err != nil {
		if !isQuotaError(err.Error()) {
			return nil, err
		}
		f.quotaExhausted.Store(true)
		return f.fallback.Speak(u)
	}

	// The primary can also report quota exhaustion asynchronously, after the
	// utterance was accepted. Relay results and redirect to the fallback if
	// that happens mid-utterance.
	out := make(chan SpeakResult, 1)
	go func() {
		defer close(out)
		res, ok := <-results
		if !ok {
			return
		}
		if res.Outcome == SpeakFailed && isQuotaError(res.Detail) {
			f.quotaExhausted.Store(true)
			fbResults, fbErr := f.fallback.Speak(u)
			if fbErr != nil {
				out <- SpeakResult{Outcome: SpeakFailed, Detail: fbErr.Error()}
				return
			}
			if fbRes, fbOK := <-fbResults; fbOK {
				out <- fbRes
			}
			return
		}
		out <- res
	}()
	return out, nil
}

func (f *FailoverSynthesis) Cancel() {
	f.primary.Cancel()
	f.fallback.Cancel()
}

func (f *FailoverSynthesis) Resume() {
	f.active().Resume()
}

func (f *FailoverSynthesis) Speaking() bool {
	return f.primary.Speaking() || f.fallback.Speaking()
}

func isQuotaError(detail string) bool {
	d := strings.ToLower(detail)
	return strings.Contains(d, "quota") || strings.Contains(d, "payment required") || strings.Contains(d, "402")
}
