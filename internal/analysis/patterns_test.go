package analysis

import (
	"strings"
	"testing"
	"time"
)

func TestAnalyzePace(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		duration   time.Duration
		want       Pace
	}{
		{
			name:       "slow pace under 80 wpm",
			transcript: "I just feel tired",
			duration:   6 * time.Second,
			want:       PaceSlow,
		},
		{
			name:       "normal pace",
			transcript: "I had a pretty okay day at work today honestly",
			duration:   4 * time.Second,
			want:       PaceNormal,
		},
		{
			name:       "fast pace over 180 wpm",
			transcript: "everything is happening all at once and I do not know what to do about any of it",
			duration:   3 * time.Second,
			want:       PaceFast,
		},
		{
			name:       "zero duration defaults to normal baseline",
			transcript: "hello there",
			duration:   0,
			want:       PaceNormal,
		},
		{
			name:       "negative duration defaults to normal baseline",
			transcript: "hello there",
			duration:   -time.Second,
			want:       PaceNormal,
		},
		{
			name:       "empty transcript with measured duration is zero wpm",
			transcript: "",
			duration:   5 * time.Second,
			want:       PaceSlow,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Analyze(tc.transcript, tc.duration)
			if got.Pace != tc.want {
				t.Fatalf("Analyze(%q, %v).Pace = %q, want %q", tc.transcript, tc.duration, got.Pace, tc.want)
			}
		})
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := Analyze("I feel panic and I'm scared right now", 2*time.Second)
	b := Analyze("I feel panic and I'm scared right now", 2*time.Second)
	if a.Pace != b.Pace || a.Urgency != b.Urgency || len(a.EmotionalCues) != len(b.EmotionalCues) {
		t.Fatalf("Analyze is not deterministic: %+v vs %+v", a, b)
	}
}

func TestAnalyzeUrgency(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		duration   time.Duration
		want       Urgency
	}{
		{
			name:       "calm statement is low",
			transcript: "today was fine I suppose",
			duration:   3 * time.Second,
			want:       UrgencyLow,
		},
		{
			name:       "two urgency words is medium",
			transcript: "I feel panic and I'm scared",
			duration:   4 * time.Second,
			want:       UrgencyMedium,
		},
		{
			name:       "fast pace alone is medium",
			transcript: "so many things went wrong today and then more things went wrong after that too",
			duration:   3 * time.Second,
			want:       UrgencyMedium,
		},
		{
			name:       "crisis word overrides everything",
			transcript: "I feel hopeless and want to give up",
			duration:   10 * time.Second,
			want:       UrgencyHigh,
		},
		{
			name:       "crisis matching is case-insensitive",
			transcript: "It all feels HOPELESS",
			duration:   5 * time.Second,
			want:       UrgencyHigh,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Analyze(tc.transcript, tc.duration)
			if got.Urgency != tc.want {
				t.Fatalf("Analyze(%q).Urgency = %q, want %q", tc.transcript, got.Urgency, tc.want)
			}
		})
	}
}

func TestAnalyzeCueOrder(t *testing.T) {
	// Fast + urgent + crisis + fragmented, all at once.
	transcript := "please help I feel panic... it's hopeless and I want to give up now before it all falls apart again"
	got := Analyze(transcript, 2*time.Second)

	want := []string{
		"rapid speech, possible anxiety or agitation",
		"urgent language detected",
		"crisis language detected",
		"fragmented speech pattern",
	}
	if len(got.EmotionalCues) != len(want) {
		t.Fatalf("EmotionalCues = %v, want %v", got.EmotionalCues, want)
	}
	for i := range want {
		if got.EmotionalCues[i] != want[i] {
			t.Fatalf("EmotionalCues[%d] = %q, want %q", i, got.EmotionalCues[i], want[i])
		}
	}
}

func TestAnalyzeFragmentation(t *testing.T) {
	got := Analyze("I. Can't. Do. This. Any. More. Today.", 6*time.Second)
	found := false
	for _, cue := range got.EmotionalCues {
		if cue == "fragmented speech pattern" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fragmentation cue, got %v", got.EmotionalCues)
	}
}

func TestAnnotate(t *testing.T) {
	plain := Analyze("today was fine I suppose", 3*time.Second)
	if got := Annotate("today was fine I suppose", plain); got != "today was fine I suppose" {
		t.Fatalf("Annotate() = %q, want passthrough for quiet result", got)
	}

	loaded := Analyze("I feel hopeless and want to give up", 10*time.Second)
	got := Annotate("I feel hopeless and want to give up", loaded)
	if !strings.Contains(got, "urgency=high") {
		t.Fatalf("Annotate() = %q, want urgency annotation", got)
	}
	if !strings.HasPrefix(got, "I feel hopeless and want to give up") {
		t.Fatalf("Annotate() = %q, want transcript preserved at front", got)
	}
}

func TestDetectCrisisKeywords(t *testing.T) {
	m := DetectCrisisKeywords("I feel hopeless and want to give up")
	if !m.Detected {
		t.Fatalf("DetectCrisisKeywords() Detected = false, want true")
	}
	if m.Severe() {
		t.Fatalf("Severe() = true, want false for non-severe keywords %v", m.Keywords)
	}

	severe := DetectCrisisKeywords("sometimes I think about suicide")
	if !severe.Detected || !severe.Severe() {
		t.Fatalf("DetectCrisisKeywords(severe) = %+v, want detected and severe", severe)
	}

	clean := DetectCrisisKeywords("I had a lovely walk this morning")
	if clean.Detected {
		t.Fatalf("DetectCrisisKeywords(clean) Detected = true, want false")
	}
}
