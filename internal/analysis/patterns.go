package analysis

import (
	"fmt"
	"strings"
	"time"
)

type Pace string

const (
	PaceSlow   Pace = "slow"
	PaceNormal Pace = "normal"
	PaceFast   Pace = "fast"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// PatternResult describes speaking pace, heuristic urgency, and human-readable
// emotional cues derived from a single transcribed utterance.
type PatternResult struct {
	Pace          Pace     `json:"pace"`
	Urgency       Urgency  `json:"urgency"`
	EmotionalCues []string `json:"emotionalCues"`
}

// Baseline words-per-minute assumed when no usable duration is available.
const defaultWPM = 120.0

var urgencyWords = []string{
	"help me",
	"right now",
	"can't take",
	"can't breathe",
	"panic",
	"scared",
	"terrified",
	"emergency",
	"urgent",
	"please help",
}

// crisisWords is the client-side vocabulary; matching any of these forces
// urgency to high regardless of pace.
var crisisWords = []string{
	"hopeless",
	"no point",
	"give up",
	"can't go on",
	"end it",
	"suicide",
	"kill myself",
	"self-harm",
	"want to die",
	"no reason to live",
	"worthless",
	"better off without me",
}

// Analyze derives speech-pattern signals from a transcript and the elapsed
// listening duration. It is a pure function: same inputs, same output.
func Analyze(transcript string, duration time.Duration) PatternResult {
	words := strings.Fields(transcript)
	wpm := defaultWPM
	if duration > 0 {
		wpm = float64(len(words)) / float64(duration.Milliseconds()) * 60000
	}

	pace := PaceNormal
	switch {
	case wpm < 80:
		pace = PaceSlow
	case wpm > 180:
		pace = PaceFast
	}

	lower := strings.ToLower(transcript)

	urgencyHits := 0
	for _, w := range urgencyWords {
		if strings.Contains(lower, w) {
			urgencyHits++
		}
	}
	crisisHit := false
	for _, w := range crisisWords {
		if strings.Contains(lower, w) {
			crisisHit = true
			break
		}
	}

	urgency := UrgencyLow
	if urgencyHits >= 2 || pace == PaceFast {
		urgency = UrgencyMedium
	}
	if crisisHit {
		urgency = UrgencyHigh
	}

	// Cue order is fixed: pace, urgency, crisis, fragmentation.
	var cues []string
	switch pace {
	case PaceFast:
		cues = append(cues, "rapid speech, possible anxiety or agitation")
	case PaceSlow:
		cues = append(cues, "slow speech, possible low energy or sadness")
	}
	if urgencyHits > 0 {
		cues = append(cues, "urgent language detected")
	}
	if crisisHit {
		cues = append(cues, "crisis language detected")
	}
	if isFragmented(transcript) {
		cues = append(cues, "fragmented speech pattern")
	}

	return PatternResult{
		Pace:          pace,
		Urgency:       urgency,
		EmotionalCues: cues,
	}
}

func isFragmented(transcript string) bool {
	if strings.Contains(transcript, "...") {
		return true
	}
	splits := strings.FieldsFunc(transcript, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	return len(splits) > 5
}

// Annotate appends a machine-readable summary of detected speech cues to the
// transcript so the classifier sees tone context beyond the bare words.
func Annotate(transcript string, result PatternResult) string {
	if len(result.EmotionalCues) == 0 && result.Pace == PaceNormal && result.Urgency == UrgencyLow {
		return transcript
	}
	summary := fmt.Sprintf("[speech patterns: pace=%s, urgency=%s", result.Pace, result.Urgency)
	if len(result.EmotionalCues) > 0 {
		summary += ", cues: " + strings.Join(result.EmotionalCues, "; ")
	}
	summary += "]"
	return transcript + "\n\n" + summary
}
