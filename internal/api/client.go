// internal/api/client.go

// Package api is the client for the recipe and submission service. Responses
// arrive either wrapped in a {success, data, error} envelope or bare; both
// shapes are tolerated because the server mixes them across endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pricescout/pricescout/internal/auth"
	"github.com/pricescout/pricescout/internal/extract"
	"github.com/pricescout/pricescout/internal/recipe"
)

// ErrUnauthorized means the server rejected the bearer token (or none was
// available). Callers should prompt for login rather than retry.
var ErrUnauthorized = errors.New("unauthorized")

// NetworkError wraps transport-level failures so callers can tell
// "unreachable" apart from "server said no".
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("api unreachable: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a structured rejection from the service, carrying the
// human-readable message the UI surfaces.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected request: %s", e.Message)
	}
	return fmt.Sprintf("server rejected request: status %d", e.Status)
}

// User is the authenticated account as reported by the service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// RecipeMatch pairs a recipe with the server's match confidence for a URL.
type RecipeMatch struct {
	recipe.Recipe
	Confidence float64 `json:"confidence,omitempty"`
}

// Client talks to the service with a bearer token from the TokenStore.
// Outbound calls share a rate limiter so bulk extraction cannot hammer the
// API.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  auth.TokenStore
	limiter *rate.Limiter
}

// NewClient builds a client for baseURL. A nil httpc gets a 30s-timeout
// default.
func NewClient(baseURL string, tokens auth.TokenStore, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// Login authenticates and persists the returned token in the TokenStore.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", loginRequest{email, password}, &resp, false)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &ServerError{Message: "login response carried no token"}
	}
	if err := c.tokens.Save(resp.Token); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// CurrentUser fetches the account behind the stored token.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListRecipes fetches the full recipe set, active and inactive.
func (c *Client) ListRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	var recipes []recipe.Recipe
	if err := c.do(ctx, http.MethodGet, "/api/v1/recipes", nil, &recipes, true); err != nil {
		return nil, err
	}
	return recipes, nil
}

// FindRecipesByURL asks the server which recipes apply to pageURL, sorted by
// descending confidence.
func (c *Client) FindRecipesByURL(ctx context.Context, pageURL string) ([]RecipeMatch, error) {
	path := "/api/v1/recipes/find?url=" + url.QueryEscape(pageURL)
	var matches []RecipeMatch
	if err := c.do(ctx, http.MethodGet, path, nil, &matches, true); err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches, nil
}

type submitRequest struct {
	Items []*extract.Record `json:"items"`
}

// SubmitRecords posts extracted records to the service.
func (c *Client) SubmitRecords(ctx context.Context, records []*extract.Record) error {
	if len(records) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/v1/products/submit", submitRequest{Items: records}, nil, true)
}

// envelope is the wrapped response shape. Success is a pointer so a bare
// payload (no "success" key) is distinguishable from success=false.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.tokens.Token()
		if err != nil {
			if errors.Is(err, auth.ErrNoToken) {
				return ErrUnauthorized
			}
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return &ServerError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	return decodeResponse(raw, out)
}

// decodeResponse accepts both the {success, data, error} envelope and a bare
// array or object payload.
func decodeResponse(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	// Bare arrays can never be envelopes.
	if trimmed[0] == '[' {
		if out == nil {
			return nil
		}
		return json.Unmarshal(trimmed, out)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil {
		if !*env.Success {
			return &ServerError{Message: env.Error}
		}
		if out == nil || len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, out)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(trimmed, out)
}

func errorMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != "" {
		return env.Error
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if json.Valid(raw) && strings.HasPrefix(msg, "{") {
		log.Debug().RawJSON("body", raw).Msg("unrecognized error payload")
		return ""
	}
	return msg
}
