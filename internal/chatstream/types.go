package chatstream

// EmotionAnalysis is the per-turn classification produced by the server and
// delivered out-of-band within the chat stream.
type EmotionAnalysis struct {
	Emotion        string `json:"emotion"`
	Intensity      int    `json:"intensity"`
	RiskLevel      string `json:"risk_level"`
	PrimaryFeeling string `json:"primary_feeling"`
}

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Message is one prior conversation turn sent as context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Callbacks receive stream events. Exactly one of OnDone or OnError fires per
// Stream call, and nothing fires after it.
type Callbacks struct {
	OnEmotion func(EmotionAnalysis)
	OnDelta   func(string)
	OnDone    func()
	OnError   func(message string)
}
