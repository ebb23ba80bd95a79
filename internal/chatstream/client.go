package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// historyLimit caps the context window sent with each turn.
const historyLimit = 10

// Client opens one streaming chat request per user turn and dispatches the
// server's event-stream lines to callbacks.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    strings.TrimSpace(url),
		apiKey: strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type streamRequest struct {
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversationHistory"`
	SessionID           string    `json:"sessionId,omitempty"`
	UserID              string    `json:"userId,omitempty"`
}

type streamEvent struct {
	Type    string           `json:"type"`
	Emotion *EmotionAnalysis `json:"emotion"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream performs one chat turn. All outcomes are reported through callbacks;
// it never panics or leaks errors past the call boundary. Callers who need it
// non-blocking run it in a goroutine.
func (c *Client) Stream(ctx context.Context, message string, history []Message, cb Callbacks) {
	finished := false
	fail := func(msg string) {
		if finished {
			return
		}
		finished = true
		if cb.OnError != nil {
			cb.OnError(msg)
		}
	}
	finish := func() {
		if finished {
			return
		}
		finished = true
		if cb.OnDone != nil {
			cb.OnDone()
		}
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	payload, err := json.Marshal(streamRequest{
		Message:             message,
		ConversationHistory: history,
		SessionID:           sessionIDFrom(ctx),
		UserID:              userIDFrom(ctx),
	})
	if err != nil {
		fail("Connection error")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		fail("Connection error")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		fail("Connection error")
		return
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		fail(errorMessageForStatus(res))
		return
	}

	buffer := ""
	chunk := make([]byte, 4096)
	for {
		n, readErr := res.Body.Read(chunk)
		if n > 0 {
			buffer += string(chunk[:n])

			for {
				newline := strings.IndexByte(buffer, '\n')
				if newline < 0 {
					break
				}
				line := buffer[:newline]
				buffer = buffer[newline+1:]

				line = strings.TrimSuffix(line, "\r")
				if strings.HasPrefix(line, ":") || strings.TrimSpace(line) == "" {
					continue
				}
				if !strings.HasPrefix(line, "data: ") {
					continue
				}

				jsonStr := strings.TrimSpace(line[len("data: "):])
				if jsonStr == "[DONE]" {
					finish()
					return
				}

				var evt streamEvent
				if err := json.Unmarshal([]byte(jsonStr), &evt); err != nil {
					// Incomplete JSON split across chunks: put the line back and
					// wait for more data rather than dropping the fragment.
					buffer = line + "\n" + buffer
					break
				}

				if evt.Type == "emotion" && evt.Emotion != nil {
					if cb.OnEmotion != nil {
						cb.OnEmotion(*evt.Emotion)
					}
					continue
				}
				if len(evt.Choices) > 0 && evt.Choices[0].Delta.Content != "" {
					if cb.OnDelta != nil {
						cb.OnDelta(evt.Choices[0].Delta.Content)
					}
				}
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				fail("Connection error")
				return
			}
			break
		}
	}

	// Stream closed without an explicit [DONE]: flush remaining complete lines.
	if strings.TrimSpace(buffer) != "" {
		for _, raw := range strings.Split(buffer, "\n") {
			raw = strings.TrimSuffix(raw, "\r")
			if raw == "" || strings.HasPrefix(raw, ":") || strings.TrimSpace(raw) == "" {
				continue
			}
			if !strings.HasPrefix(raw, "data: ") {
				continue
			}
			jsonStr := strings.TrimSpace(raw[len("data: "):])
			if jsonStr == "[DONE]" {
				continue
			}
			var evt streamEvent
			if err := json.Unmarshal([]byte(jsonStr), &evt); err != nil {
				continue
			}
			if len(evt.Choices) > 0 && evt.Choices[0].Delta.Content != "" {
				if cb.OnDelta != nil {
					cb.OnDelta(evt.Choices[0].Delta.Content)
				}
			}
		}
	}

	finish()
}

func errorMessageForStatus(res *http.Response) string {
	switch res.StatusCode {
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Please wait a moment and try again."
	case http.StatusPaymentRequired:
		return "AI credits exhausted. Please add credits to continue."
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error) != "" {
		return parsed.Error
	}
	return fmt.Sprintf("Request failed with status %d", res.StatusCode)
}
