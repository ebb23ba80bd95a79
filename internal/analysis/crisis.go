package analysis

import "strings"

// crisisKeywords is the server-side vocabulary used by the chat gateway for
// early risk prediction before the model's own classification arrives.
var crisisKeywords = []string{
	"hopeless", "no point", "give up", "can't go on", "end it", "suicide",
	"kill myself", "self-harm", "cutting", "die", "death", "alone forever",
	"tired of life", "no reason to live", "worthless", "burden", "nobody cares",
	"want to disappear", "can't take it", "better off without me",
}

// severeKeywords force risk to high when present.
var severeKeywords = []string{
	"suicide", "kill myself", "self-harm", "end it", "die",
}

// CrisisMatch reports which crisis keywords were found in a message.
type CrisisMatch struct {
	Detected bool
	Keywords []string
}

// Severe reports whether any matched keyword belongs to the severe subset.
func (m CrisisMatch) Severe() bool {
	for _, kw := range m.Keywords {
		for _, severe := range severeKeywords {
			if kw == severe {
				return true
			}
		}
	}
	return false
}

// DetectCrisisKeywords scans a message for crisis vocabulary using
// case-insensitive substring containment.
func DetectCrisisKeywords(message string) CrisisMatch {
	lower := strings.ToLower(message)
	var found []string
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return CrisisMatch{Detected: len(found) > 0, Keywords: found}
}
