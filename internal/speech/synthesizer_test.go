package speech

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSpeakCancelsInFlightUtteranceFirst(t *testing.T) {
	engine := NewMockSynthesisEngine()
	adapter := NewSynthesisAdapter(engine)

	before := engine.Cancels()
	if err := adapter.Speak(context.Background(), "hello there", "en"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if engine.Cancels() != before+1 {
		t.Fatalf("cancels = %d, want %d", engine.Cancels(), before+1)
	}

	spoken := engine.Spoken()
	if len(spoken) != 1 || spoken[0].Text != "hello there" || spoken[0].Lang != "en-US" {
		t.Fatalf("spoken = %+v, want one en-US utterance", spoken)
	}
}

func TestSpeakEmptyTextIsNoOp(t *testing.T) {
	engine := NewMockSynthesisEngine()
	adapter := NewSynthesisAdapter(engine)
	if err := adapter.Speak(context.Background(), "   ", "en"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(engine.Spoken()) != 0 {
		t.Fatalf("empty text reached the engine")
	}
}

func TestSpeakInterruptionResolvesCleanly(t *testing.T) {
	engine := NewMockSynthesisEngine()
	engine.HoldUtterances()
	adapter := NewSynthesisAdapter(engine)

	done := make(chan error, 1)
	go func() { done <- adapter.Speak(context.Background(), "a long reply", "en") }()

	waitFor(t, time.Second, engine.Speaking)
	adapter.StopAll()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("interrupted Speak returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Speak did not return after interruption")
	}
}

func TestSpeakReportsEngineFailure(t *testing.T) {
	engine := NewMockSynthesisEngine()
	engine.HoldUtterances()
	adapter := NewSynthesisAdapter(engine)

	done := make(chan error, 1)
	go func() { done <- adapter.Speak(context.Background(), "a reply", "en") }()

	waitFor(t, time.Second, engine.Speaking)
	engine.FinishCurrent(SpeakFailed, "synthesis backend unavailable")

	err := <-done
	if err == nil {
		t.Fatalf("failed utterance returned nil error")
	}
}

func TestSpeakTreatsInterruptedDetailAsSuccess(t *testing.T) {
	engine := NewMockSynthesisEngine()
	engine.HoldUtterances()
	adapter := NewSynthesisAdapter(engine)

	done := make(chan error, 1)
	go func() { done <- adapter.Speak(context.Background(), "a reply", "en") }()

	waitFor(t, time.Second, engine.Speaking)
	engine.FinishCurrent(SpeakFailed, "interrupted")

	if err := <-done; err != nil {
		t.Fatalf("interrupted error detail returned %v, want nil", err)
	}
}

func TestPickVoicePreference(t *testing.T) {
	engine := NewMockSynthesisEngine()
	adapter := NewSynthesisAdapter(engine)

	cases := []struct {
		name   string
		voices []Voice
		locale string
		want   string
	}{
		{
			name: "exact locale wins",
			voices: []Voice{
				{Name: "Aria", Lang: "en-GB"},
				{Name: "Nova", Lang: "pt-BR"},
			},
			locale: "pt-BR",
			want:   "Nova",
		},
		{
			name: "natural voice preferred within matches",
			voices: []Voice{
				{Name: "Basic US", Lang: "en-US"},
				{Name: "US Natural", Lang: "en-US"},
			},
			locale: "en-US",
			want:   "US Natural",
		},
		{
			name: "language prefix when no exact match",
			voices: []Voice{
				{Name: "Aria", Lang: "en-GB"},
				{Name: "Marta", Lang: "es-MX"},
			},
			locale: "es-ES",
			want:   "Marta",
		},
		{
			name: "engine default when language missing",
			voices: []Voice{
				{Name: "Aria", Lang: "en-GB"},
				{Name: "Yuki", Lang: "ja-JP", Default: true},
			},
			locale: "ko-KR",
			want:   "Yuki",
		},
		{
			name: "first voice as last resort",
			voices: []Voice{
				{Name: "Aria", Lang: "en-GB"},
				{Name: "Yuki", Lang: "ja-JP"},
			},
			locale: "ko-KR",
			want:   "Aria",
		},
	}

	for _, tc := range cases {
		engine.SetVoices(tc.voices)
		if got := adapter.pickVoice(tc.locale); got != tc.want {
			t.Fatalf("%s: pickVoice(%q) = %q, want %q", tc.name, tc.locale, got, tc.want)
		}
	}
}

func TestFailoverSwitchesOnQuotaError(t *testing.T) {
	primary := NewMockSynthesisEngine()
	fallback := NewMockSynthesisEngine()
	primary.SetStartError(errors.New("quota exceeded"))

	fo := NewFailoverSynthesis(primary, fallback)
	results, err := fo.Speak(Utterance{Text: "hello"})
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if res := <-results; res.Outcome != SpeakCompleted {
		t.Fatalf("outcome = %q, want completed via fallback", res.Outcome)
	}
	if !fo.QuotaExhausted() {
		t.Fatalf("quota flag not set after quota error")
	}
	if len(fallback.Spoken()) != 1 || len(primary.Spoken()) != 0 {
		t.Fatalf("fallback spoke %d, primary spoke %d; want 1 and 0", len(fallback.Spoken()), len(primary.Spoken()))
	}

	// Subsequent utterances skip the primary entirely.
	if _, err := fo.Speak(Utterance{Text: "again"}); err != nil {
		t.Fatalf("second Speak: %v", err)
	}
	if len(fallback.Spoken()) != 2 {
		t.Fatalf("fallback spoke %d, want 2", len(fallback.Spoken()))
	}

	fo.ResetQuota()
	primary.SetStartError(nil)
	if _, err := fo.Speak(Utterance{Text: "recovered"}); err != nil {
		t.Fatalf("Speak after reset: %v", err)
	}
	if len(primary.Spoken()) != 1 {
		t.Fatalf("primary spoke %d after reset, want 1", len(primary.Spoken()))
	}
}

func TestFailoverPassesThroughNonQuotaErrors(t *testing.T) {
	primary := NewMockSynthesisEngine()
	fallback := NewMockSynthesisEngine()
	primary.SetStartError(errors.New("device wedged"))

	fo := NewFailoverSynthesis(primary, fallback)
	if _, err := fo.Speak(Utterance{Text: "hello"}); err == nil {
		t.Fatalf("non-quota error swallowed")
	}
	if fo.QuotaExhausted() {
		t.Fatalf("quota flag set by non-quota error")
	}
	if len(fallback.Spoken()) != 0 {
		t.Fatalf("fallback used for non-quota error")
	}
}

func TestFailoverHandlesAsyncQuotaFailure(t *testing.T) {
	primary := NewMockSynthesisEngine()
	primary.HoldUtterances()
	fallback := NewMockSynthesisEngine()

	fo := NewFailoverSynthesis(primary, fallback)
	results, err := fo.Speak(Utterance{Text: "hello"})
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}

	waitFor(t, time.Second, primary.Speaking)
	primary.FinishCurrent(SpeakFailed, "402 quota exceeded")

	res := <-results
	if res.Outcome != SpeakCompleted {
		t.Fatalf("outcome = %q, want completed via fallback", res.Outcome)
	}
	if !fo.QuotaExhausted() {
		t.Fatalf("quota flag not set after async quota failure")
	}
	if len(fallback.Spoken()) != 1 {
		t.Fatalf("fallback spoke %d, want 1", len(fallback.Spoken()))
	}
}
