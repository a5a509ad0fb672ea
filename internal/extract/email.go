package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/hearthhq/intake/internal/types"
)

// EmailExtractor turns a Gmail message into task drafts. The message
// body is free text, so this extractor runs the full strategy chain:
// text-understanding call, then keyword heuristic, then a raw note.
type EmailExtractor struct {
	completer Completer
}

func NewEmailExtractor(completer Completer) *EmailExtractor {
	return &EmailExtractor{completer: completer}
}

func (e *EmailExtractor) Name() string { return "email" }

// Extract expects a *gmail.Message payload. The message ID becomes the
// draft SourceID so re-delivered messages dedupe by identity.
func (e *EmailExtractor) Extract(ctx context.Context, ec Context, payload any) ([]*types.TaskDraft, error) {
	msg, ok := payload.(*gmail.Message)
	if !ok {
		return nil, wrongPayload(e.Name(), payload)
	}
	if msg == nil || msg.Id == "" {
		return nil, fmt.Errorf("email extractor: message has no id")
	}

	subject := messageHeader(msg, "Subject")
	from := messageHeader(msg, "From")
	body := messageBody(msg)
	if body == "" {
		body = msg.Snippet
	}

	var text strings.Builder
	if subject != "" {
		fmt.Fprintf(&text, "Subject: %s\n", subject)
	}
	if from != "" {
		fmt.Fprintf(&text, "From: %s\n", from)
	}
	text.WriteString("\n")
	text.WriteString(body)

	sourceID := msg.Id
	chain := []strategy{
		aiStrategy(e.completer, types.SourceEmail, "email", &sourceID),
		heuristicStrategy(types.SourceEmail, &sourceID),
		noteStrategy(types.SourceEmail, &sourceID),
	}
	return runChain(ctx, ec, e.Name(), text.String(), chain), nil
}

// messageHeader finds a header by name in the message payload
// (case-insensitive, first match wins).
func messageHeader(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// messageBody extracts the plain-text body. Gmail nests multipart
// messages arbitrarily deep; the first decodable text/plain part wins,
// falling back to the top-level body.
func messageBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if text := findPlainText(msg.Payload); text != "" {
		return text
	}
	return decodeBody(msg.Payload.Body)
}

func findPlainText(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if strings.HasPrefix(part.MimeType, "text/plain") {
		if text := decodeBody(part.Body); text != "" {
			return text
		}
	}
	for _, child := range part.Parts {
		if text := findPlainText(child); text != "" {
			return text
		}
	}
	return ""
}

// decodeBody decodes the base64url body data Gmail uses. Both padded
// and unpadded encodings appear in the wild.
func decodeBody(body *gmail.MessagePartBody) string {
	if body == nil || body.Data == "" {
		return ""
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(body.Data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.URLEncoding.DecodeString(body.Data); err == nil {
		return string(decoded)
	}
	return ""
}
