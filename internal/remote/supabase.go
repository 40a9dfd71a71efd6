package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openamc/amctrack/internal/logger"
	"github.com/openamc/amctrack/internal/models"
)

const statsTable = "user_stats"

// SupabaseClient talks to a Supabase (PostgREST) backend. Authorization uses
// the project anon key plus a per-request backend session token.
type SupabaseClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewSupabaseClient creates a client for the given project URL and anon key.
func NewSupabaseClient(baseURL, anonKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *SupabaseClient) FetchStats(ctx context.Context, token, userID string) (*models.StatsAggregate, error) {
	log := logger.FromContext(ctx).WithPrefix("supabase").WithField("user_id", userID)

	endpoint := fmt.Sprintf("%s/rest/v1/%s?user_id=eq.%s&limit=1", c.baseURL, statsTable, url.QueryEscape(userID))
	log.Debug("fetching stats row")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return nil, err
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to fetch stats: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	log.Debug("fetch response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, readError("fetch stats", resp, log)
	}

	var rows []statsRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		log.Error("failed to decode stats response: %v", err)
		return nil, err
	}
	if len(rows) == 0 {
		log.Info("no stats row for user")
		return nil, nil
	}

	stats, err := decodeRow(&rows[0])
	if err != nil {
		log.Error("failed to decode stats row: %v", err)
		return nil, err
	}
	log.Info("fetched stats row: total_solved=%d, total_attempts=%d", stats.TotalSolved, stats.TotalAttempts)
	return stats, nil
}

func (c *SupabaseClient) CreateStats(ctx context.Context, token, userID string, stats *models.StatsAggregate) error {
	log := logger.FromContext(ctx).WithPrefix("supabase").WithField("user_id", userID)

	row, err := encodeRow(userID, stats)
	if err != nil {
		return err
	}
	body, err := json.Marshal(row)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, statsTable)
	log.Debug("creating stats row")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to create request: %v", err)
		return err
	}
	c.setHeaders(req, token)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to create stats row: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return readError("create stats", resp, log)
	}
	log.Info("stats row created")
	return nil
}

func (c *SupabaseClient) UpdateStats(ctx context.Context, token, userID string, stats *models.StatsAggregate) error {
	log := logger.FromContext(ctx).WithPrefix("supabase").WithField("user_id", userID)

	row, err := encodeRow("", stats)
	if err != nil {
		return err
	}
	body, err := json.Marshal(row)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?user_id=eq.%s", c.baseURL, statsTable, url.QueryEscape(userID))
	log.Debug("updating stats row")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		log.Error("failed to create request: %v", err)
		return err
	}
	c.setHeaders(req, token)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to update stats row: %v", err)
		return err
	}
	defer resp.Body.Close()

	log.Debug("update response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return readError("update stats", resp, log)
	}
	log.Info("stats row updated: total_solved=%d, total_attempts=%d", stats.TotalSolved, stats.TotalAttempts)
	return nil
}

func (c *SupabaseClient) setHeaders(req *http.Request, token string) {
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
}

func readError(op string, resp *http.Response, log *logger.Logger) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	log.Error("%s failed: status=%d, body=%s", op, resp.StatusCode, string(body))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: string(body)}
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Op, e.Status, e.Body)
}

// IsAuthError reports whether err is the backend rejecting the session
// token. Callers should invalidate any cached token and re-exchange.
func IsAuthError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) &&
		(se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden)
}
