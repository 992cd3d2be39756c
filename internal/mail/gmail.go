package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailMailbox searches the user's Gmail account through the Gmail API.
type GmailMailbox struct {
	service *gmail.Service
	user    string
}

// NewGmailMailbox builds a mailbox over the Gmail API using a service
// credentials file.
func NewGmailMailbox(ctx context.Context, credentialsFile string) (*GmailMailbox, error) {
	service, err := gmail.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gmail.GmailReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailMailbox{service: service, user: "me"}, nil
}

// Search lists messages matching the sender/subject filters received
// at-or-after since, with decoded bodies.
func (g *GmailMailbox) Search(ctx context.Context, since time.Time, sender, subject string) ([]Message, error) {
	query := fmt.Sprintf(`from:%s subject:"%s" after:%d`, sender, subject, since.Unix())

	list, err := g.service.Users.Messages.List(g.user).Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list failed: %w", err)
	}

	var out []Message
	for _, ref := range list.Messages {
		full, err := g.service.Users.Messages.Get(g.user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gmail get %s failed: %w", ref.Id, err)
		}

		msg := Message{
			ID:         full.Id,
			Body:       payloadText(full.Payload),
			ReceivedAt: time.UnixMilli(full.InternalDate),
		}
		for _, h := range full.Payload.Headers {
			switch h.Name {
			case "From":
				msg.From = h.Value
			case "Subject":
				msg.Subject = h.Value
			}
		}

		// Gmail's after: filter has day granularity; enforce the window
		// precisely here so stale codes from earlier runs never match.
		if msg.ReceivedAt.Before(since) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// payloadText walks a message payload, preferring text/plain parts and
// falling back to text/html, and decodes the body.
func payloadText(p *gmail.MessagePart) string {
	if p == nil {
		return ""
	}
	if text := findPart(p, "text/plain"); text != "" {
		return text
	}
	return findPart(p, "text/html")
}

func findPart(p *gmail.MessagePart, mimeType string) string {
	if p.MimeType == mimeType && p.Body != nil && p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	for _, part := range p.Parts {
		if text := findPart(part, mimeType); text != "" {
			return text
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
