// Package mouser resolves part numbers through the Mouser Search API.
package mouser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joe-wehbe/mouser-sheets-automation/entities"
	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/joe-wehbe/mouser-sheets-automation/logging"
	"github.com/joe-wehbe/mouser-sheets-automation/metrics"
	"github.com/juju/ratelimit"
	"golang.org/x/text/encoding/charmap"
)

// Compile-time check to ensure Client implements PartResolver
var _ interfaces.PartResolver = (*Client)(nil)

const searchPath = "search/partnumber"

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 10 * 1024 * 1024

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL           string // must end with a slash
	APIKey            string
	Timeout           time.Duration // 0 means no client timeout
	RequestsPerMinute int64         // 0 disables pacing
	HTTPClient        *http.Client  // overrides Timeout when set
}

// Client issues one search request per part number, without retries
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	bucket     *ratelimit.Bucket
}

// NewClient creates a new Mouser search client
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/" + searchPath,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}

	if cfg.RequestsPerMinute > 0 {
		// a capacity of one spaces requests evenly instead of allowing bursts
		c.bucket = ratelimit.NewBucket(time.Minute/time.Duration(cfg.RequestsPerMinute), 1)
	}

	return c
}

// Resolve implements interfaces.PartResolver. Any failure yields the
// all "N/A" part; the outcome says whether the part was missing or the lookup failed.
func (c *Client) Resolve(ctx context.Context, partNumber string) (entities.Part, entities.LookupOutcome) {
	start := time.Now()
	part, outcome := c.resolve(ctx, partNumber)
	metrics.ObserveLookup(outcome, time.Since(start))
	return part, outcome
}

func (c *Client) resolve(ctx context.Context, partNumber string) (entities.Part, entities.LookupOutcome) {
	if err := c.wait(ctx); err != nil {
		logging.Warn("Lookup cancelled while waiting for rate limit", "part_number", partNumber, "error", err)
		return entities.UnresolvedPart(), entities.OutcomeFailed
	}

	body, status, err := c.post(ctx, partNumber)
	if err != nil {
		logging.Warn("Part lookup request failed", "part_number", partNumber, "error", err)
		return entities.UnresolvedPart(), entities.OutcomeFailed
	}

	if status != http.StatusOK {
		logging.Warn("Part lookup returned non-OK status", "part_number", partNumber, "status", status)
		return entities.UnresolvedPart(), entities.OutcomeFailed
	}

	return parseSearchResponse(partNumber, body)
}

// wait blocks until the rate limit lets the next request through
func (c *Client) wait(ctx context.Context) error {
	if c.bucket == nil {
		return nil
	}
	delay := c.bucket.Take(1)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// post sends the search request and returns the raw body and status code
func (c *Client) post(ctx context.Context, partNumber string) ([]byte, int, error) {
	payload, err := json.Marshal(searchByPartRequest{
		SearchByPartRequest: partSearch{MouserPartNumber: partNumber},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.URL.RawQuery = url.Values{"apiKey": {c.apiKey}}.Encode()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, redactKey(err, c.apiKey)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// parseSearchResponse picks the first part of a 200 response
func parseSearchResponse(partNumber string, body []byte) (entities.Part, entities.LookupOutcome) {
	// The API answers in UTF-8, but descriptions occasionally come back as Latin-1
	if !utf8.Valid(body) {
		body = decodeStrayLatin1(body)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logging.Warn("Malformed search response", "part_number", partNumber, "error", err)
		return entities.UnresolvedPart(), entities.OutcomeFailed
	}

	if len(resp.Errors) > 0 && (resp.SearchResults == nil || len(resp.SearchResults.Parts) == 0) {
		logging.Warn("Search API reported errors",
			"part_number", partNumber,
			"errors", apiErrorMessages(resp.Errors),
		)
		return entities.UnresolvedPart(), entities.OutcomeFailed
	}

	if resp.SearchResults == nil || resp.SearchResults.Parts == nil {
		logging.Warn("Search response lacks the parts list", "part_number", partNumber)
		return entities.UnresolvedPart(), entities.OutcomeFailed
	}

	if len(resp.SearchResults.Parts) == 0 {
		logging.Debug("No match for part number", "part_number", partNumber)
		return entities.UnresolvedPart(), entities.OutcomeNotFound
	}

	first := resp.SearchResults.Parts[0]
	logging.Debug("Matched part number",
		"part_number", partNumber,
		"mouser_part_number", deref(first.MouserPartNumber),
		"matches", resp.SearchResults.NumberOfResult,
	)
	return entities.NewPart(deref(first.Manufacturer), deref(first.Category), deref(first.Description)), entities.OutcomeFound
}

// decodeStrayLatin1 keeps valid UTF-8 sequences and reads every invalid byte as ISO-8859-1
func decodeStrayLatin1(body []byte) []byte {
	decoded := make([]byte, 0, len(body)+len(body)/4)
	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size == 1 {
			r = charmap.ISO8859_1.DecodeByte(body[0])
		}
		decoded = utf8.AppendRune(decoded, r)
		body = body[size:]
	}
	return decoded
}

func apiErrorMessages(errs []apiError) []string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Code != "" {
			messages = append(messages, e.Code+": "+e.Message)
		} else {
			messages = append(messages, e.Message)
		}
	}
	return messages
}

// redactKey keeps the API key out of transport errors, which embed the request URL
func redactKey(err error, apiKey string) error {
	if apiKey == "" {
		return err
	}
	msg := err.Error()
	for _, form := range []string{apiKey, url.QueryEscape(apiKey)} {
		msg = strings.ReplaceAll(msg, form, "REDACTED")
	}
	return errors.New(msg)
}
