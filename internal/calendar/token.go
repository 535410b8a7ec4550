package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const googleTokenURL = "https://oauth2.googleapis.com/token"

// ServiceAccount carries the Google service-account identity used to sign
// token assertions.
type ServiceAccount struct {
	ClientEmail string
	PrivateKey  string // PEM, PKCS#8
	ProjectID   string
}

// tokenSource exchanges a signed RS256 assertion for an access token and
// caches it until shortly before expiry.
type tokenSource struct {
	sa     ServiceAccount
	scopes []string
	client *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenSource(sa ServiceAccount, scopes []string, client *http.Client) *tokenSource {
	return &tokenSource{sa: sa, scopes: scopes, client: client}
}

func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiry) {
		return ts.token, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	ts.token = body.AccessToken
	ts.expiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)

	return ts.token, nil
}

func (ts *tokenSource) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(ts.sa.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse service account key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.sa.ClientEmail,
		"scope": strings.Join(ts.scopes, " "),
		"aud":   googleTokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	return signed, nil
}
