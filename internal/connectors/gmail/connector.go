package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"studentoffer/internal"
	"studentoffer/internal/config"
	"studentoffer/internal/connectors"
)

const provider = "gmail"

type Connector struct {
	service *gmail.Service
	now     func() time.Time
}

func NewConnector(cfg config.Config) (*Connector, error) {
	required := []struct{ name, value string }{
		{"GMAIL_CLIENT_ID", cfg.GmailClientID},
		{"GMAIL_CLIENT_SECRET", cfg.GmailClientSecret},
		{"GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken},
	}
	for _, r := range required {
		if err := cfg.Require(r.name, r.value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
	ts := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Connector{service: svc, now: time.Now}, nil
}

func (c *Connector) Provider() string { return provider }

// FetchInbox lists the label and downloads each message once in raw form;
// headers are read from the raw message itself.
func (c *Connector) FetchInbox(ctx context.Context, q connectors.Query) ([]internal.FetchedMailMessage, error) {
	q = q.WithDefaults()
	call := c.service.Users.Messages.List("me").LabelIds(q.Label).MaxResults(int64(q.Max)).Context(ctx)
	if search := searchQuery(q.Since); search != "" {
		call = call.Q(search)
	}
	listed, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list %s: %w", q.Label, err)
	}

	out := make([]internal.FetchedMailMessage, 0, len(listed.Messages))
	for _, ref := range listed.Messages {
		if ref.Id == "" {
			continue
		}
		msg, err := c.service.Users.Messages.Get("me", ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s: %w", ref.Id, err)
		}
		fetched, ok, err := toFetched(msg, c.now())
		if err != nil {
			return nil, fmt.Errorf("gmail message %s: %w", ref.Id, err)
		}
		if ok {
			out = append(out, fetched)
		}
	}
	return out, nil
}

func toFetched(msg *gmail.Message, now time.Time) (internal.FetchedMailMessage, bool, error) {
	if msg == nil || msg.Raw == "" {
		return internal.FetchedMailMessage{}, false, nil
	}
	raw, err := decodeBase64URL(msg.Raw)
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}

	// a message enmime cannot read is still stored; the processor decides
	header := func(string) string { return "" }
	if env, err := enmime.ReadEnvelope(bytes.NewReader(raw)); err == nil {
		header = env.GetHeader
	}

	messageID := strings.TrimSpace(header("Message-ID"))
	if messageID == "" {
		messageID = msg.Id
	}
	return internal.FetchedMailMessage{
		Provider:   provider,
		MessageID:  messageID,
		Subject:    header("Subject"),
		From:       header("From"),
		ReceivedAt: receivedAt(msg.InternalDate, header("Date"), now),
		Raw:        raw,
	}, true, nil
}

// receivedAt prefers Gmail's internal date (epoch millis), then the Date
// header, then now.
func receivedAt(internalMillis int64, dateHeader string, now time.Time) string {
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis).UTC().Format(time.RFC3339)
	}
	if t, err := mail.ParseDate(strings.TrimSpace(dateHeader)); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return now.UTC().Format(time.RFC3339)
}

// searchQuery limits the listing to messages after the cursor. Gmail takes
// epoch seconds for after:.
func searchQuery(since time.Time) string {
	if since.IsZero() {
		return ""
	}
	return fmt.Sprintf("after:%d", since.Unix())
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
