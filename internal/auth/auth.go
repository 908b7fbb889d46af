// Package auth validates bot credentials at login. Three modes ship:
// none (every login accepted), static (key list from the server
// config) and http (callback to an external credential service).
package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidCredentials indicates the bot id / api key pair is
	// definitively wrong.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUnavailable indicates the credential service could not be
	// reached. Logins fail closed on it.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity is the authenticated bot.
type Identity struct {
	BotID   string `json:"botId"`
	BotName string `json:"botName"`
	OwnerID string `json:"ownerId,omitempty"`
}

// Validator checks a login's credentials.
type Validator interface {
	// Validate returns the identity for a valid bot id / api key pair,
	// ErrInvalidCredentials on a definitive rejection, or
	// ErrUnavailable when no verdict could be reached.
	Validate(ctx context.Context, botID, apiKey string) (*Identity, error)
}

// NoopValidator accepts every login, minting an identity from the
// claimed bot id. Development mode only.
type NoopValidator struct{}

// NewNoopValidator creates the accept-all validator.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(_ context.Context, botID, _ string) (*Identity, error) {
	return &Identity{BotID: botID, BotName: botID}, nil
}

// StaticKey is one configured credential.
type StaticKey struct {
	Key  string
	Name string
}

// StaticValidator checks credentials against a fixed table, typically
// loaded from the auth block of the server config.
type StaticValidator struct {
	keys map[string]StaticKey
}

// NewStaticValidator creates a validator over the given bot id to key
// table.
func NewStaticValidator(keys map[string]StaticKey) *StaticValidator {
	return &StaticValidator{keys: keys}
}

func (v *StaticValidator) Validate(_ context.Context, botID, apiKey string) (*Identity, error) {
	entry, ok := v.keys[botID]
	if !ok || subtle.ConstantTimeCompare([]byte(entry.Key), []byte(apiKey)) != 1 {
		return nil, ErrInvalidCredentials
	}
	name := entry.Name
	if name == "" {
		name = botID
	}
	return &Identity{BotID: botID, BotName: name}, nil
}

// HTTPValidator delegates validation to an external HTTP endpoint.
type HTTPValidator struct {
	url    string
	client *http.Client
}

// NewHTTPValidator creates a validator posting to url. A zero timeout
// defaults to 500ms.
func NewHTTPValidator(url string, timeout time.Duration) *HTTPValidator {
	if timeout == 0 {
		timeout = 500 * time.Millisecond
	}
	return &HTTPValidator{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	BotID  string `json:"botId"`
	APIKey string `json:"apiKey"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	BotName string `json:"botName,omitempty"`
	OwnerID string `json:"ownerId,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, botID, apiKey string) (*Identity, error) {
	if botID == "" || apiKey == "" {
		return nil, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, v.client.Timeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{BotID: botID, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var verdict validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !verdict.Valid {
		return nil, ErrInvalidCredentials
	}

	name := verdict.BotName
	if name == "" {
		name = botID
	}
	return &Identity{BotID: botID, BotName: name, OwnerID: verdict.OwnerID}, nil
}
