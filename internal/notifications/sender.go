package notifications

import (
	"context"

	"github.com/9ssi7/exponent"
)

// expoBatchSize is the most messages Expo accepts in one request.
const expoBatchSize = 100

// PushSender sends Expo push messages.
type PushSender interface {
	Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error)
}

type ExpoAdapter struct {
	client *exponent.Client
}

func NewExpoAdapter(c *exponent.Client) *ExpoAdapter {
	return &ExpoAdapter{client: c}
}

// Publish sends msgs in batches and stops at the first failed batch.
func (a *ExpoAdapter) Publish(ctx context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	var out []*exponent.MessageResponse
	for _, batch := range batches(msgs, expoBatchSize) {
		res, err := a.client.Publish(ctx, batch)
		out = append(out, res...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func batches(msgs []*exponent.Message, size int) [][]*exponent.Message {
	var out [][]*exponent.Message
	for len(msgs) > size {
		out = append(out, msgs[:size])
		msgs = msgs[size:]
	}
	if len(msgs) > 0 {
		out = append(out, msgs)
	}
	return out
}

// pushMessages builds one message per distinct token.
func pushMessages(tokens []string, title, body string, data map[string]string) []*exponent.Message {
	tokens = dedupe(tokens)
	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			Data:  data,
		})
	}
	return msgs
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
