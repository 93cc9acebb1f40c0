// Package quotes fetches the quote-of-the-day from the ZenQuotes API.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"daily_quote_mailer/internal/domain/quote"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	DefaultURL     = "https://zenquotes.io/api/today"
	DefaultTimeout = 10 * time.Second
)

var (
	ErrUnexpectedStatus = errors.New("quote API returned a non-success status")
	ErrMalformedPayload = errors.New("quote API returned a malformed payload")
	ErrNoQuote          = errors.New("quote API returned no quotes")
	ErrEmptyQuote       = errors.New("quote API returned an empty quote")
)

// ZenQuotesClient implements quote.Fetcher.
type ZenQuotesClient struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewZenQuotesClient creates a client for url. A nil httpClient gets one with DefaultTimeout.
func NewZenQuotesClient(url string, httpClient *http.Client, logger *logrus.Logger) *ZenQuotesClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &ZenQuotesClient{url: url, httpClient: httpClient, logger: logger}
}

type zenQuote struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// Fetch issues a single GET and maps the first entry to a Quote.
func (c *ZenQuotesClient) Fetch(ctx context.Context) (*quote.Quote, error) {
	c.logger.Infof("Fetching quote from: %s", c.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote API request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Infof("Response status code: %d", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	c.logger.Debugf("Raw response: %s", body)

	var entries []zenQuote
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoQuote
	}

	text := strings.TrimSpace(entries[0].Q)
	if text == "" {
		return nil, ErrEmptyQuote
	}

	author := strings.TrimSpace(entries[0].A)
	return &quote.Quote{
		Text:   text,
		Author: lo.Ternary(author == "", quote.UnknownAuthor, author),
	}, nil
}
