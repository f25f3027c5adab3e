// Package dashboard talks to the rule dashboard: it fetches the rules to
// evaluate and reports which of them the engine has picked up.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/solatis/windowkeeper/internal/types"
)

const (
	apiPath              = "/v1/api/"
	componentRulesPath   = "components/rules"
	markSynchronizedPath = "rules/synchronization_status/Sync"

	// statusNotSynchronized selects rules the engine has not picked up yet.
	statusNotSynchronized = "NotSync"

	// maxErrorBody bounds how much of a failed response ends up in an error.
	maxErrorBody = 512
)

// ErrInvalidResponse is returned when the dashboard answers with anything
// but 200 OK or the request cannot be completed.
var ErrInvalidResponse = errors.New("invalid dashboard response")

// RulesAPI is the subset of the dashboard used by the engine.
type RulesAPI interface {
	ActiveComponentRules(ctx context.Context) ([]types.ComponentRules, error)
	MarkRulesSynchronized(ctx context.Context, ruleIDs []string) error
}

// Client is an HTTP client for the dashboard rules API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type rulesRequest struct {
	Status                []string `json:"status"`
	SynchronizationStatus string   `json:"synchronizationStatus"`
}

// NewClient creates a client for the dashboard at baseURL authenticating
// with a bearer token. timeout bounds every request.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("dashboard url is required")
	}
	if token == "" {
		return nil, errors.New("dashboard token is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + apiPath,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// ActiveComponentRules returns the rules not yet synchronized, grouped by component.
func (c *Client) ActiveComponentRules(ctx context.Context) ([]types.ComponentRules, error) {
	body := rulesRequest{
		Status:                types.RuleStatuses(),
		SynchronizationStatus: statusNotSynchronized,
	}
	var out []types.ComponentRules
	if err := c.do(ctx, http.MethodPost, componentRulesPath, body, &out); err != nil {
		return nil, fmt.Errorf("fetch component rules: %w", err)
	}
	return out, nil
}

// MarkRulesSynchronized reports ruleIDs as picked up by the engine.
func (c *Client) MarkRulesSynchronized(ctx context.Context, ruleIDs []string) error {
	if ruleIDs == nil {
		ruleIDs = []string{}
	}
	if err := c.do(ctx, http.MethodPut, markSynchronizedPath, ruleIDs, nil); err != nil {
		return fmt.Errorf("update synchronization status: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: %d %s", ErrInvalidResponse, method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidResponse, path, err)
	}
	return nil
}
