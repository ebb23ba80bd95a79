package reliability

import "time"

// IsRetryableHTTPStatus classifies upstream status codes worth retrying.
// 429 and 402 are excluded: both carry user-facing messages that must
// surface immediately rather than being retried into a worse backlog.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsTerminalRecognitionError classifies recognition error kinds that must end
// the capture session instead of triggering a restart.
func IsTerminalRecognitionError(kind string) bool {
	switch kind {
	case "not-allowed", "service-not-allowed":
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
