package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TokenSource yields the bot token. An empty token means the bot is not
// configured.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token taken from configuration.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// tokenPayload is the JSON shape accepted for tokens stored in SSM.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamToken reads the token from a parameter store. The parameter holds
// either the raw token or {"token": "..."}.
type ParamToken struct {
	getter Getter
	name   string
}

func NewParamToken(g Getter, name string) (*ParamToken, error) {
	if g == nil {
		return nil, errors.New("telegram: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("telegram: token parameter name is empty")
	}
	return &ParamToken{getter: g, name: name}, nil
}

func (p *ParamToken) Token(ctx context.Context) (string, error) {
	raw, err := p.getter.GetParameter(ctx, p.name)
	if err != nil {
		return "", fmt.Errorf("telegram: fetch token from paramstore: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var tp tokenPayload
		if err := json.Unmarshal([]byte(raw), &tp); err != nil {
			return "", fmt.Errorf("telegram: unmarshal paramstore token value as JSON: %w", err)
		}
		return strings.TrimSpace(tp.Token), nil
	}
	return raw, nil
}
