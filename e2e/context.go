package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestContext holds per-scenario HTTP state against a running server.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string

	client       *http.Client
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
	remembered   map[string]string
}

// NewTestContext reads INTAKE_E2E_BASE_URL, INTAKE_REVIEWER_SIGNING_KEY and
// INTAKE_REVIEWER_ISSUER, falling back to the server's development defaults.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    envOr("INTAKE_E2E_BASE_URL", "http://localhost:8080"),
		SigningKey: envOr("INTAKE_REVIEWER_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:     envOr("INTAKE_REVIEWER_ISSUER", "intake"),
		client:     &http.Client{Timeout: 10 * time.Second},
		remembered: make(map[string]string),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Reset clears response state between scenarios.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
	tc.remembered = make(map[string]string)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.POSTWithHeaders(path, body, nil)
}

func (tc *TestContext) POSTWithHeaders(path string, body any, headers map[string]string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var parsed map[string]any
		if err := json.Unmarshal(tc.lastBody, &parsed); err == nil {
			tc.lastResponse = parsed
		}
	}
	return nil
}

func (tc *TestContext) GetLastStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastBody() string {
	return string(tc.lastBody)
}

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("last response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := tc.lastResponse[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}

func (tc *TestContext) Remember(key, value string) {
	tc.remembered[key] = value
}

func (tc *TestContext) Recall(key string) (string, error) {
	v, ok := tc.remembered[key]
	if !ok {
		return "", fmt.Errorf("nothing remembered as %q", key)
	}
	return v, nil
}

// ReviewerToken mints a clinician bearer token the server accepts.
func (tc *TestContext) ReviewerToken(reviewerID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  reviewerID,
		"role": "clinician",
		"iss":  tc.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(5 * time.Minute).Unix(),
	})
	return token.SignedString([]byte(tc.SigningKey))
}
