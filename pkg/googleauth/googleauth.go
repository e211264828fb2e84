package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Identity is the verified subject of a Google ID token.
type Identity struct {
	GoogleID string
	Email    string
	Name     string
}

// Verifier validates Google ID tokens and extracts the signed identity.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// TokenInfoVerifier verifies ID tokens against Google's tokeninfo
// endpoint, which checks the signature server-side.
type TokenInfoVerifier struct {
	clientID string
	client   *http.Client
}

// NewTokenInfoVerifier creates a verifier bound to one OAuth client ID.
func NewTokenInfoVerifier(clientID string) *TokenInfoVerifier {
	return &TokenInfoVerifier{
		clientID: clientID,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// tokenInfoResponse is the subset of the tokeninfo payload we consume
type tokenInfoResponse struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Error         string `json:"error_description"`
}

// Verify checks the token with Google and validates the audience.
func (v *TokenInfoVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	endpoint := fmt.Sprintf("%s?id_token=%s", tokenInfoURL, url.QueryEscape(idToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach google tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse tokeninfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid google token: %s", info.Error)
	}

	if v.clientID != "" && info.Aud != v.clientID {
		return nil, fmt.Errorf("google token issued for a different client")
	}

	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("google token missing identity claims")
	}

	if info.EmailVerified != "true" {
		return nil, fmt.Errorf("google account email is not verified")
	}

	return &Identity{
		GoogleID: info.Sub,
		Email:    info.Email,
		Name:     info.Name,
	}, nil
}
