// Package platform is a typed client for the workflow orchestration
// platform's REST API: rule and enforcement queries, execution lookups, the
// key-value store, and trigger dispatch.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heimdall/model"
)

type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewClient(addr, apiKey string) (*Client, error) {
	if _, err := url.Parse(addr); err != nil {
		return nil, fmt.Errorf("platform client: %w", err)
	}
	return &Client{
		base:   strings.TrimRight(addr, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Healthy checks connectivity to the platform.
func (c *Client) Healthy(ctx context.Context) error {
	return c.get(ctx, "/api/v1/health", nil)
}

// CronRules returns the enabled rules whose trigger type is cron-timer.
func (c *Client) CronRules(ctx context.Context) ([]model.Rule, error) {
	var rules []model.Rule
	if err := c.get(ctx, "/api/v1/rules?enabled=true", &rules); err != nil {
		return nil, fmt.Errorf("rule query: %w", err)
	}
	cron := rules[:0]
	for _, r := range rules {
		if r.IsCronTimer() {
			cron = append(cron, r)
		}
	}
	return cron, nil
}

// Enforcements returns the enforcement history for one rule, newest first as
// ordered by the platform.
func (c *Client) Enforcements(ctx context.Context, ruleRef string) ([]model.Enforcement, error) {
	var enfs []model.Enforcement
	path := "/api/v1/ruleenforcements?rule_ref=" + url.QueryEscape(ruleRef)
	if err := c.get(ctx, path, &enfs); err != nil {
		return nil, fmt.Errorf("enforcement query for %s: %w", ruleRef, err)
	}
	return enfs, nil
}

// Enforcement fetches the full record for one enforcement, including the
// failure reason left behind when rule evaluation failed.
func (c *Client) Enforcement(ctx context.Context, id string) (*model.Enforcement, error) {
	var enf model.Enforcement
	if err := c.get(ctx, "/api/v1/ruleenforcements/"+url.PathEscape(id), &enf); err != nil {
		return nil, fmt.Errorf("enforcement %s: %w", id, err)
	}
	return &enf, nil
}

// Execution fetches one execution record by ID.
func (c *Client) Execution(ctx context.Context, id string) (*model.Execution, error) {
	var exec model.Execution
	if err := c.get(ctx, "/api/v1/executions/"+url.PathEscape(id), &exec); err != nil {
		return nil, fmt.Errorf("execution %s: %w", id, err)
	}
	return &exec, nil
}

// GetValue reads one key from the platform key-value store. A missing key is
// not an error; ok reports presence.
func (c *Client) GetValue(ctx context.Context, key string) (string, bool, error) {
	var kv struct {
		Value string `json:"value"`
	}
	err := c.get(ctx, "/api/v1/keys/"+url.PathEscape(key), &kv)
	if err != nil {
		if errStatus(err) == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("datastore get %s: %w", key, err)
	}
	return kv.Value, true, nil
}

// SetValue overwrites one key in the platform key-value store.
func (c *Client) SetValue(ctx context.Context, key, value string) error {
	body := map[string]string{"name": key, "value": value}
	if err := c.do(ctx, http.MethodPut, "/api/v1/keys/"+url.PathEscape(key), body, nil); err != nil {
		return fmt.Errorf("datastore set %s: %w", key, err)
	}
	return nil
}

// DispatchTrigger injects a trigger instance into the platform. Fire and
// forget: the platform routes it to whatever rules listen on the ref.
func (c *Client) DispatchTrigger(ctx context.Context, ref string, payload model.TriggerPayload) error {
	body := struct {
		Trigger string              `json:"trigger"`
		Payload model.TriggerPayload `json:"payload"`
	}{Trigger: ref, Payload: payload}
	if err := c.do(ctx, http.MethodPost, "/api/v1/triggers", body, nil); err != nil {
		return fmt.Errorf("dispatch %s: %w", ref, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError is a non-2xx platform response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform returned %d", e.Code)
	}
	return fmt.Sprintf("platform returned %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the platform.
func IsNotFound(err error) bool {
	return errStatus(err) == http.StatusNotFound
}

func errStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
