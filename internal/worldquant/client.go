package worldquant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/snpixel/worldquant/internal/config"
	"github.com/snpixel/worldquant/internal/model"
	"go.uber.org/zap"
)

// Client is a session against the WorldQuant Brain API. It keeps the
// basic-auth credentials for re-authentication and a cookie jar for the
// session token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      config.Credentials
	settings   config.SimulationSettings
	retry      model.RetryConfig
	logger     *zap.Logger
}

// NewClient creates an unauthenticated client. An empty baseURL targets
// the production platform; a nil logger falls back to a no-op logger.
func NewClient(baseURL string, creds config.Credentials, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = config.APIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{Jar: jar, Timeout: 2 * time.Minute},
		baseURL:    baseURL,
		creds:      creds,
		settings:   config.DefaultSimulationSettings(),
		retry:      model.DefaultRetryConfig,
		logger:     logger,
	}
}

// Authenticate opens a session. The platform answers 201 on success.
func (c *Client) Authenticate(ctx context.Context) error {
	c.logger.Info("authenticating with WorldQuant Brain")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+config.AuthEndpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("authentication request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("authentication failed with status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Info("authentication successful")
	return nil
}

// ------------------- Catalog -------------------

type dataFieldsPage struct {
	Results []map[string]interface{} `json:"results"`
}

// GetDataFields fetches the available data fields across the given
// datasets, de-duplicated by field ID. An empty slice scans the default
// datasets. A dataset that fails to fetch is logged and skipped; the
// catalog call only fails when nothing at all could be retrieved.
func (c *Client) GetDataFields(ctx context.Context, datasets []string) ([]model.DataField, error) {
	if len(datasets) == 0 {
		datasets = config.DefaultDatasets
	}

	seen := make(map[string]bool)
	var fields []model.DataField
	var lastErr error

	for _, dataset := range datasets {
		params := url.Values{}
		params.Set("delay", "1")
		params.Set("instrumentType", "EQUITY")
		params.Set("limit", strconv.Itoa(config.DataFieldsPageLimit))
		params.Set("region", "USA")
		params.Set("universe", "TOP3000")
		params.Set("dataset.id", dataset)

		c.logger.Info("requesting data fields", zap.String("dataset", dataset))

		var page dataFieldsPage
		if err := c.getJSON(ctx, config.DataFieldsEndpoint+"?"+params.Encode(), &page); err != nil {
			c.logger.Error("failed to fetch data fields",
				zap.String("dataset", dataset), zap.Error(err))
			lastErr = err
			continue
		}

		for _, raw := range page.Results {
			field := fieldFromRaw(raw, dataset)
			if field.ID == "" || seen[field.ID] {
				continue
			}
			seen[field.ID] = true
			fields = append(fields, field)
		}
	}

	if len(fields) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to fetch any data fields: %w", lastErr)
	}

	c.logger.Info("data field catalog loaded", zap.Int("fields", len(fields)))
	return fields, nil
}

// GetOperators fetches the operator catalog. The platform has served
// both a bare array and a results envelope over time; accept either.
func (c *Client) GetOperators(ctx context.Context) ([]model.Operator, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+config.OperatorsEndpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("operators request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get operators, status %d: %s", resp.StatusCode, string(body))
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		var envelope struct {
			Results []map[string]interface{} `json:"results"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Results == nil {
			return nil, fmt.Errorf("unexpected operators response format")
		}
		raw = envelope.Results
	}

	operators := make([]model.Operator, 0, len(raw))
	for _, m := range raw {
		operators = append(operators, operatorFromRaw(m))
	}

	c.logger.Info("operator catalog loaded", zap.Int("operators", len(operators)))
	return operators, nil
}

// ------------------- Expression check -------------------

// CheckExpression asks the platform to parse an expression under the
// default simulation settings. It implements engine.SyntaxChecker.
func (c *Client) CheckExpression(ctx context.Context, expression string) (*model.CheckOutcome, error) {
	c.logger.Debug("checking expression", zap.String("expression", expression))

	payload := map[string]interface{}{
		"type":     "REGULAR",
		"settings": c.settings,
		"regular":  expression,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+config.ParseEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return &model.CheckOutcome{
			Status:  "invalid",
			Error:   string(respBody),
			Details: map[string]interface{}{},
		}, nil
	}

	details := map[string]interface{}{}
	// The parse endpoint body is opaque to us; keep whatever it holds.
	_ = json.Unmarshal(respBody, &details)
	return &model.CheckOutcome{Status: model.CheckStatusValid, Details: details}, nil
}

// ------------------- Simulation submission -------------------

// SubmitSimulation submits an expression for a test simulation and
// returns the progress URL of the accepted submission. Rate limits are
// honored via Retry-After, expired sessions are refreshed, and
// transport failures back off with jitter up to the retry budget.
func (c *Client) SubmitSimulation(ctx context.Context, expression string) (string, error) {
	c.logger.Info("submitting simulation", zap.String("expression", expression))

	payload := map[string]interface{}{
		"type":     "REGULAR",
		"settings": c.settings,
		"regular":  expression,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+config.SimulationsEndpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("simulation request failed",
				zap.Int("attempt", attempt+1), zap.Error(err))
			if attempt == c.retry.MaxAttempts-1 {
				return "", fmt.Errorf("simulation request failed after %d attempts: %w", c.retry.MaxAttempts, err)
			}
			if err := c.sleep(ctx, c.backoffDelay(attempt)); err != nil {
				return "", err
			}
			continue
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			wait := retryAfter(resp, config.RateLimitSleepSecs)
			resp.Body.Close()
			c.logger.Warn("rate limited", zap.Duration("wait", wait))
			if err := c.sleep(ctx, wait); err != nil {
				return "", err
			}
			continue

		case http.StatusUnauthorized:
			resp.Body.Close()
			c.logger.Warn("session expired, re-authenticating")
			if err := c.Authenticate(ctx); err != nil {
				return "", err
			}
			continue

		case http.StatusCreated:
			location := resp.Header.Get("Location")
			resp.Body.Close()
			return location, nil

		default:
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("simulation submission failed with status %d: %s", resp.StatusCode, string(respBody))
		}
	}

	return "", fmt.Errorf("simulation submission exceeded %d attempts", c.retry.MaxAttempts)
}

// ------------------- Helpers -------------------

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// backoffDelay grows the delay exponentially, capped at MaxDelay, with
// optional half-width jitter.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := float64(c.retry.InitialDelay) * math.Pow(c.retry.BackoffMultiplier, float64(attempt))
	if delay > float64(c.retry.MaxDelay) {
		delay = float64(c.retry.MaxDelay)
	}
	if c.retry.Jitter {
		delay = delay/2 + rand.Float64()*delay/2
	}
	return time.Duration(delay)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryAfter(resp *http.Response, fallbackSecs int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(fallbackSecs) * time.Second
}

func fieldFromRaw(raw map[string]interface{}, dataset string) model.DataField {
	field := model.DataField{Dataset: dataset, Extra: raw}
	if id, ok := raw["id"].(string); ok {
		field.ID = id
	}
	if desc, ok := raw["description"].(string); ok {
		field.Description = desc
	}
	if typ, ok := raw["type"].(string); ok {
		field.Type = typ
	}
	return field
}

func operatorFromRaw(raw map[string]interface{}) model.Operator {
	op := model.Operator{Extra: raw}
	if name, ok := raw["name"].(string); ok {
		op.Name = name
	}
	if category, ok := raw["category"].(string); ok {
		op.Category = category
	}
	if def, ok := raw["definition"].(string); ok {
		op.Definition = def
	}
	return op
}
