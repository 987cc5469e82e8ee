package connectors

import (
	"context"
	"strings"
	"time"

	"studentoffer/internal"
)

const (
	DefaultLabel = "INBOX"
	DefaultMax   = 20
)

// Query selects which messages a connector returns. A zero Since means no
// lower bound.
type Query struct {
	Label string
	Max   int
	Since time.Time
}

// WithDefaults fills a blank label and a non-positive max.
func (q Query) WithDefaults() Query {
	if strings.TrimSpace(q.Label) == "" {
		q.Label = DefaultLabel
	}
	if q.Max <= 0 {
		q.Max = DefaultMax
	}
	return q
}

type MailConnector interface {
	Provider() string
	FetchInbox(ctx context.Context, q Query) ([]internal.FetchedMailMessage, error)
}
