package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reader-go/internal/model"

	"go.uber.org/zap"
)

// Dictionary is the pair of lookups a phrase query round needs.
type Dictionary interface {
	LookupDictionary(ctx context.Context, query, sentence string) ([]model.DictionaryEntry, error)
	LookupSeenContent(ctx context.Context, query string) ([]model.SeenContentOccurrence, error)
}

// ContentLoader fetches stored texts by id.
type ContentLoader interface {
	ContentByID(ctx context.Context, id string) (*model.Content, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to the dictionary API: /infer, /seen-content and /graphql.
type Client struct {
	http    *http.Client
	baseURL string
	creds   *Credentials
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, creds *Credentials, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if creds == nil {
		creds = &Credentials{}
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		logger:  logger,
	}
}

type inferRequest struct {
	Query   string `json:"Query"`
	Context string `json:"Context"`
}

type resultEnvelope struct {
	Message   string          `json:"Message,omitempty"`
	CSRFToken string          `json:"CSRFToken,omitempty"`
	Result    json.RawMessage `json:"Result"`
}

// LookupDictionary asks the inference endpoint for entries matching query
// as used in the given sentence.
func (c *Client) LookupDictionary(ctx context.Context, query, sentence string) ([]model.DictionaryEntry, error) {
	var entries []model.DictionaryEntry
	body := inferRequest{Query: query, Context: sentence}
	if err := c.doResult(ctx, http.MethodPost, c.baseURL+"/infer", body, &entries); err != nil {
		return nil, fmt.Errorf("lookup dictionary %q: %w", query, err)
	}
	return entries, nil
}

// LookupSeenContent lists earlier reading material containing query.
func (c *Client) LookupSeenContent(ctx context.Context, query string) ([]model.SeenContentOccurrence, error) {
	var occurrences []model.SeenContentOccurrence
	u := c.baseURL + "/seen-content?" + url.Values{"q": {query}}.Encode()
	if err := c.doResult(ctx, http.MethodGet, u, nil, &occurrences); err != nil {
		return nil, fmt.Errorf("lookup seen content %q: %w", query, err)
	}
	return occurrences, nil
}

func (c *Client) doResult(ctx context.Context, method, u string, in any, out any) error {
	raw, err := c.do(ctx, method, u, in)
	if err != nil {
		return err
	}
	var env resultEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	c.creds.capture(env.CSRFToken)
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, in any) ([]byte, error) {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	c.creds.apply(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("Lookup request completed",
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		const maxBody = 2048
		if len(body) > maxBody {
			body = body[:maxBody]
		}
		return nil, &StatusError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
