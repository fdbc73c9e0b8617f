package brain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/salesbot/internal/reliability"
)

var (
	errEmptyReply     = errors.New("completion endpoint returned an empty reply")
	errMalformedReply = errors.New("completion endpoint returned a malformed reply")

	retryBaseDelay = 200 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// statusError is a non-2xx answer from the completion endpoint.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("brain http status %d: %s", e.code, e.body)
}

// chatPayload is the body accepted by the hosted chat endpoint.
type chatPayload struct {
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversationHistory"`
}

// HTTPAdapter forwards turns to a hosted LLM chat endpoint.
type HTTPAdapter struct {
	url        string
	timeout    time.Duration
	maxRetries int
	client     *http.Client
}

func NewHTTPAdapter(url string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HTTPAdapter{
		url:     strings.TrimSpace(url),
		timeout: timeout,
		client:  &http.Client{},
	}
}

func (a *HTTPAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	history := req.History
	if history == nil {
		history = []Message{}
	}
	payload, err := json.Marshal(chatPayload{Message: req.Message, ConversationHistory: history})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, retryBaseDelay, retryMaxDelay)):
			}
		}
		text, err := a.send(ctx, payload)
		if err == nil {
			return Response{Text: text, Source: SourceLLM}, nil
		}
		lastErr = err
		var se *statusError
		if !errors.As(err, &se) || !reliability.IsRetryableHTTPStatus(se.code) {
			break
		}
	}
	return Response{}, lastErr
}

func (a *HTTPAdapter) send(ctx context.Context, payload []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &statusError{code: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var text string
	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/event-stream") || strings.Contains(ct, "application/x-ndjson") {
		text, err = consumeStreaming(res.Body)
	} else {
		text, err = consumeBody(res.Body)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyReply
	}
	return text, nil
}

func consumeBody(body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformedReply, err)
	}
	return extractText(obj), nil
}

func consumeStreaming(body io.Reader) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
		if line == "[DONE]" {
			break
		}

		delta := line
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err == nil {
			delta = extractText(obj)
		}
		out.WriteString(delta)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read: %w", err)
	}
	return out.String(), nil
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"message", "text", "delta", "output"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// ErrorCode maps a primary failure to a short metrics label.
func ErrorCode(err error) string {
	var se *statusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.code)
	case errors.Is(err, errEmptyReply):
		return "empty_reply"
	case errors.Is(err, errMalformedReply):
		return "malformed"
	default:
		return "transport"
	}
}
