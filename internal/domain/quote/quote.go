// internal/domain/quote/quote.go
package quote

import "context"

// UnknownAuthor is used when the source does not attribute a quote.
const UnknownAuthor = "Unknown"

// Quote is the quote-of-the-day broadcast to every recipient of a run.
type Quote struct {
	Text   string
	Author string
}

// Fetcher retrieves the quote-of-the-day from an external source.
// A nil quote is never returned together with a nil error.
type Fetcher interface {
	Fetch(ctx context.Context) (*Quote, error)
}
