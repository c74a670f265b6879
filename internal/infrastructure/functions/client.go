package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

const maxBodyBytes = 1 << 20

// ErrMalformedBody reports a success response whose declared JSON body
// cannot be decoded.
var ErrMalformedBody = errors.New("malformed response body")

// StatusError reports a non-success response from a remote function.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// Client invokes remote pipeline functions over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	now      func() time.Time
}

var _ ports.FunctionInvoker = (*Client)(nil)

// NewClient targets endpoint, e.g. https://project.supabase.co/functions/v1.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Invoke POSTs to the named function and decodes whatever it answers.
func (c *Client) Invoke(ctx context.Context, name string) (domain.InvokeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+name, bytes.NewReader([]byte("{}")))
	if err != nil {
		return domain.InvokeResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.InvokeResult{}, fmt.Errorf("invoke %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	duration := c.now().Sub(started)
	if err != nil {
		return domain.InvokeResult{}, fmt.Errorf("read %s response: %w", name, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return domain.InvokeResult{}, &StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}

	result, err := ParseBody(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return domain.InvokeResult{}, fmt.Errorf("decode %s response: %w", name, err)
	}

	return domain.InvokeResult{
		Result:   result,
		Duration: duration,
	}, nil
}

// ParseBody decodes a JSON result when the content type declares one and
// otherwise wraps the body text as the result message. A body declared as
// JSON that does not parse is an error.
func ParseBody(contentType string, body []byte) (domain.FunctionResult, error) {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/json") {
		return parseJSON(body)
	}
	if strings.Contains(ct, "text/html") {
		return domain.FunctionResult{Message: htmlText(body)}, nil
	}
	return domain.FunctionResult{Message: strings.TrimSpace(string(body))}, nil
}

// parseJSON reads the recognized fields of an object. Valid JSON that is
// not an object carries no fields.
func parseJSON(body []byte) (domain.FunctionResult, error) {
	if !json.Valid(body) {
		return domain.FunctionResult{}, fmt.Errorf("%w: invalid JSON body", ErrMalformedBody)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.FunctionResult{}, nil
	}

	var result domain.FunctionResult
	if msg, ok := raw["message"]; ok {
		_ = json.Unmarshal(msg, &result.Message)
	}
	result.Scraped = counter(raw["scraped"])
	result.Processed = counter(raw["processed"])
	result.Created = counter(raw["created"])
	result.Rejected = counter(raw["rejected"])
	result.Errors = counter(raw["errors"])

	if details, ok := raw["details"]; ok {
		var items []json.RawMessage
		if json.Unmarshal(details, &items) == nil {
			for _, item := range items {
				result.Details = append(result.Details, rawText(item))
			}
		}
	}

	if logs, ok := raw["logs"]; ok {
		var items []domain.FunctionLog
		if json.Unmarshal(logs, &items) == nil {
			result.Logs = items
		}
	}

	return result, nil
}

// counter reads a count that may be sent as a number or as a list of items.
func counter(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		v := int(n)
		return &v
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		v := len(list)
		return &v
	}
	return nil
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func htmlText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return strings.TrimSpace(string(body))
	}
	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}
