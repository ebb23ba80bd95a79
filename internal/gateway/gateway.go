package gateway

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/solacehq/solace/internal/analysis"
	"github.com/solacehq/solace/internal/chatstream"
	"github.com/solacehq/solace/internal/memory"
	"github.com/solacehq/solace/internal/observability"
	"github.com/solacehq/solace/internal/reliability"
	"github.com/solacehq/solace/internal/session"
)

const systemPrompt = `You are Solace, a compassionate and safe AI mental health companion. Your role is to:

1. ALWAYS validate the user's emotions first before offering any suggestions
2. Provide short, supportive, and empathetic responses (2-4 sentences typically)
3. NEVER diagnose mental health conditions
4. NEVER prescribe medications or medical treatments
5. Use warm, gentle language that makes users feel heard and understood
6. When detecting signs of crisis (suicidal thoughts, self-harm, severe distress), gently acknowledge their pain and encourage them to reach out to crisis resources
7. Ask open-ended follow-up questions to encourage sharing
8. Focus on emotional support, not problem-solving unless explicitly asked

IMPORTANT: You MUST start EVERY response with an emotion analysis JSON block on the very first line, wrapped in <emotion> tags, like this:
<emotion>{"emotion":"positive","intensity":3,"risk_level":"low","primary_feeling":"hopeful"}</emotion>

The JSON must have:
- "emotion": one of "positive", "negative", or "neutral"
- "intensity": 1-10
- "risk_level": "low", "medium", or "high"
- "primary_feeling": the main emotion (e.g. "anxiety", "sadness", "joy", "hope", "loneliness")

After the emotion tag, write your empathetic response normally.

Remember: You are a supportive companion, not a replacement for professional therapy. Be present, be kind, and be safe.`

const crisisAddendum = "IMPORTANT: The user may be in crisis. Be extra gentle, validate their feelings, and gently encourage them to reach out to a crisis helpline or professional. Set risk_level to 'high' in your emotion tag."

const (
	openTag  = "<emotion>"
	closeTag = "</emotion>"
)

const upstreamRetries = 2

// Config wires a Gateway.
type Config struct {
	UpstreamURL string
	APIKey      string
	Model       string

	Store    memory.Store
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Logger   *log.Logger
	Client   *http.Client
}

// Gateway fronts the upstream completion API for voice clients: it injects
// the system prompt, lifts the model's leading <emotion> tag out of the text
// into an out-of-band stream event, applies keyword-based risk upgrades, and
// records crisis alerts.
type Gateway struct {
	upstreamURL string
	apiKey      string
	model       string
	store       memory.Store
	sessions    *session.Manager
	metrics     *observability.Metrics
	logger      *log.Logger
	client      *http.Client
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Gateway{
		upstreamURL: cfg.UpstreamURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		store:       cfg.Store,
		sessions:    cfg.Sessions,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		client:      cfg.Client,
	}
}

type chatRequest struct {
	Message             string               `json:"message"`
	ConversationHistory []chatstream.Message `json:"conversationHistory"`
	SessionID           string               `json:"sessionId"`
	UserID              string               `json:"userId"`
}

type upstreamMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type upstreamRequest struct {
	Model       string            `json:"model"`
	Messages    []upstreamMessage `json:"messages"`
	Stream      bool              `json:"stream"`
	Temperature float64           `json:"temperature"`
}

type upstreamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type deltaContent struct {
	Content string `json:"content"`
}

type deltaChoice struct {
	Delta deltaContent `json:"delta"`
}

type deltaEvent struct {
	Choices []deltaChoice `json:"choices"`
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	match := analysis.DetectCrisisKeywords(req.Message)

	messages := make([]upstreamMessage, 0, len(req.ConversationHistory)+3)
	messages = append(messages, upstreamMessage{Role: "system", Content: systemPrompt})
	for _, m := range req.ConversationHistory {
		messages = append(messages, upstreamMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, upstreamMessage{Role: chatstream.RoleUser, Content: req.Message})
	if match.Severe() {
		messages = append(messages, upstreamMessage{Role: "system", Content: crisisAddendum})
	}

	payload, err := json.Marshal(upstreamRequest{
		Model:       g.model,
		Messages:    messages,
		Stream:      true,
		Temperature: 0.7,
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Unknown error occurred")
		return
	}

	res, err := g.callUpstream(r, payload)
	if err != nil {
		g.logger.Printf("gateway: upstream request failed: %v", err)
		g.countUpstreamError("connect")
		writeJSONError(w, http.StatusBadGateway, "Unknown error occurred")
		return
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		g.logger.Printf("gateway: upstream status %d: %s", res.StatusCode, body)
		g.countUpstreamError(fmt.Sprintf("%d", res.StatusCode))
		switch res.StatusCode {
		case http.StatusTooManyRequests:
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment.")
		case http.StatusPaymentRequired:
			writeJSONError(w, http.StatusPaymentRequired, "AI credits exhausted.")
		default:
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Chat failed: %d", res.StatusCode))
		}
		return
	}

	g.saveTurn(r, memory.TurnRecord{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Role:      chatstream.RoleUser,
		Content:   req.Message,
	})
	if g.sessions != nil && req.SessionID != "" {
		if err := g.sessions.RecordTurn(req.SessionID); err != nil && err != session.ErrNotFound {
			g.logger.Printf("gateway: record turn: %v", err)
		}
	}

	g.transformStream(w, r, res.Body, req, match)
}

// callUpstream posts the completion request, retrying transient upstream
// failures. 429 and 402 responses are returned as-is so their user-facing
// messages surface immediately.
func (g *Gateway) callUpstream(r *http.Request, payload []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= upstreamRetries; attempt++ {
		if attempt > 0 {
			delay := reliability.ExponentialBackoff(attempt-1, 250*time.Millisecond, 2*time.Second)
			select {
			case <-r.Context().Done():
				return nil, r.Context().Err()
			case <-time.After(delay):
			}
		}

		upReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, g.upstreamURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		upReq.Header.Set("Content-Type", "application/json")
		if g.apiKey != "" {
			upReq.Header.Set("Authorization", "Bearer "+g.apiKey)
		}

		res, err := g.client.Do(upReq)
		if err != nil {
			lastErr = err
			continue
		}
		if reliability.IsRetryableHTTPStatus(res.StatusCode) && attempt < upstreamRetries {
			io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
			res.Body.Close()
			g.countUpstreamError(fmt.Sprintf("%d", res.StatusCode))
			lastErr = fmt.Errorf("upstream status %d", res.StatusCode)
			continue
		}
		return res, nil
	}
	return nil, lastErr
}

// transformStream relays upstream deltas to the client, extracting the
// leading emotion tag into its own event and accumulating the assistant's
// visible reply for persistence.
func (g *Gateway) transformStream(w http.ResponseWriter, r *http.Request, body io.Reader, req chatRequest, match analysis.CrisisMatch) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	reader := bufio.NewReader(body)
	parsingEmotion := true
	emotionSent := false
	emotionBuffer := ""
	var emotion *chatstream.EmotionAnalysis
	var assistantText strings.Builder

	for {
		line, readErr := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "data: ") {
			jsonStr := strings.TrimSpace(line[len("data: "):])
			if jsonStr != "" && jsonStr != "[DONE]" {
				var evt upstreamEvent
				if err := json.Unmarshal([]byte(jsonStr), &evt); err == nil && len(evt.Choices) > 0 {
					content := evt.Choices[0].Delta.Content
					if content != "" {
						if parsingEmotion {
							emotionBuffer += content
							if idx := strings.Index(emotionBuffer, closeTag); idx >= 0 {
								parsingEmotion = false
								if e := extractEmotion(emotionBuffer[:idx], match); e != nil {
									emotion = e
									emotionSent = true
									g.writeEmotion(w, flusher, *e)
									g.recordRisk(r, req, *e)
								}
								if rest := strings.TrimSpace(emotionBuffer[idx+len(closeTag):]); rest != "" {
									assistantText.WriteString(rest)
									g.writeDelta(w, flusher, rest)
								}
							}
						} else {
							assistantText.WriteString(content)
							g.writeDelta(w, flusher, content)
						}
					}
				}
			}
		}
		if readErr != nil {
			break
		}
	}

	if !emotionSent {
		fallback := chatstream.EmotionAnalysis{
			Emotion:        "neutral",
			Intensity:      5,
			RiskLevel:      chatstream.RiskLow,
			PrimaryFeeling: "neutral",
		}
		if match.Detected {
			fallback.RiskLevel = chatstream.RiskMedium
		}
		emotion = &fallback
		g.writeEmotion(w, flusher, fallback)
		g.recordRisk(r, req, fallback)
		g.countStreamEvent("fallback_emotion")
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	if reply := assistantText.String(); reply != "" {
		g.saveTurn(r, memory.TurnRecord{
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Role:      chatstream.RoleAssistant,
			Content:   reply,
			Emotion:   emotion,
		})
	}
}

// extractEmotion parses the tag body and applies keyword-based upgrades: any
// crisis keyword lifts low to medium, the severe subset forces high.
func extractEmotion(buffer string, match analysis.CrisisMatch) *chatstream.EmotionAnalysis {
	idx := strings.Index(buffer, openTag)
	if idx < 0 {
		return nil
	}
	var e chatstream.EmotionAnalysis
	if err := json.Unmarshal([]byte(buffer[idx+len(openTag):]), &e); err != nil {
		return nil
	}
	if match.Detected && e.RiskLevel == chatstream.RiskLow {
		e.RiskLevel = chatstream.RiskMedium
	}
	if match.Severe() {
		e.RiskLevel = chatstream.RiskHigh
	}
	return &e
}

func (g *Gateway) recordRisk(r *http.Request, req chatRequest, e chatstream.EmotionAnalysis) {
	if req.SessionID == "" {
		return
	}
	if g.sessions != nil {
		if err := g.sessions.RaiseRisk(req.SessionID, e.RiskLevel); err != nil && err != session.ErrNotFound {
			g.logger.Printf("gateway: raise risk: %v", err)
		}
	}
	if e.RiskLevel != chatstream.RiskMedium && e.RiskLevel != chatstream.RiskHigh {
		return
	}
	if g.store == nil {
		return
	}
	err := g.store.InsertAlert(r.Context(), memory.CrisisAlert{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Severity:  e.RiskLevel,
		Message:   req.Message,
	})
	if err != nil {
		g.logger.Printf("gateway: insert crisis alert: %v", err)
	}
}

func (g *Gateway) saveTurn(r *http.Request, record memory.TurnRecord) {
	if g.store == nil || record.SessionID == "" {
		return
	}
	if err := g.store.SaveTurn(r.Context(), record); err != nil {
		g.logger.Printf("gateway: save turn: %v", err)
	}
}

func (g *Gateway) writeEmotion(w http.ResponseWriter, flusher http.Flusher, e chatstream.EmotionAnalysis) {
	payload, err := json.Marshal(struct {
		Type    string                     `json:"type"`
		Emotion chatstream.EmotionAnalysis `json:"emotion"`
	}{Type: "emotion", Emotion: e})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if flusher != nil {
		flusher.Flush()
	}
	g.countStreamEvent("emotion")
}

func (g *Gateway) writeDelta(w http.ResponseWriter, flusher http.Flusher, content string) {
	payload, err := json.Marshal(deltaEvent{Choices: []deltaChoice{{Delta: deltaContent{Content: content}}}})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	if flusher != nil {
		flusher.Flush()
	}
	g.countStreamEvent("delta")
}

func (g *Gateway) countStreamEvent(event string) {
	if g.metrics != nil {
		g.metrics.StreamEvents.WithLabelValues(event).Inc()
	}
}

func (g *Gateway) countUpstreamError(code string) {
	if g.metrics != nil {
		g.metrics.UpstreamErrors.WithLabelValues(code).Inc()
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
