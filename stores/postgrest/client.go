// Package postgrest implements the authcore directory over a PostgREST
// (Supabase) REST endpoint.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	oa "github.com/gr-backend/authcore"
)

// uniqueViolation is the Postgres error code PostgREST reports for duplicate keys.
const uniqueViolation = "23505"

// Config configures a Store.
type Config struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co
	BaseURL string

	// APIKey is sent both as the bearer credential and the apikey header.
	APIKey string

	// Table defaults to "users"
	Table string

	// Timeout for each request, defaults to 10s. Ignored when HTTPClient is set.
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Store is a DirectoryStore talking to PostgREST.
type Store struct {
	baseURL string
	apiKey  string
	table   string
	client  *http.Client
	logger  *slog.Logger
}

func New(cfg Config) *Store {
	if cfg.Table == "" {
		cfg.Table = "users"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	s := &Store{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		table:   cfg.Table,
		client:  client,
		logger:  cfg.Logger,
	}
	s.checkAPIKey()
	return s
}

func (s *Store) tableURL() string {
	return s.baseURL + "/rest/v1/" + s.table
}

// Lookup runs GET /rest/v1/<table>?<field>=eq.<value> and returns the first row.
func (s *Store) Lookup(ctx context.Context, field, value string) (*oa.DirectoryRecord, error) {
	q := url.Values{}
	q.Set(field, "eq."+value)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tableURL()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: reading body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("directory lookup: status %d", resp.StatusCode)
	}

	var rows []oa.DirectoryRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("directory lookup: decoding rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, oa.ErrRecordNotFound
	}
	return &rows[0], nil
}

// Insert POSTs the record with empty fields dropped and returns the stored row.
func (s *Store) Insert(ctx context.Context, rec oa.DirectoryRecord) (*oa.DirectoryRecord, error) {
	payload, err := insertPayload(rec)
	if err != nil {
		return nil, &oa.DirectoryWriteError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tableURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, &oa.DirectoryWriteError{Err: err}
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &oa.DirectoryWriteError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &oa.DirectoryWriteError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &oa.DirectoryWriteError{
			Status:   resp.StatusCode,
			Body:     string(body),
			Conflict: isConflict(resp.StatusCode, body),
		}
	}

	var rows []oa.DirectoryRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &oa.DirectoryWriteError{Status: resp.StatusCode, Body: string(body), Err: err}
	}
	if len(rows) == 0 {
		return &rec, nil
	}
	return &rows[0], nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Accept", "application/json")
}

// insertPayload encodes rec as a JSON object without null or empty values.
func insertPayload(rec oa.DirectoryRecord) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if v == nil {
			delete(fields, k)
		}
	}
	return json.Marshal(fields)
}

func isConflict(status int, body []byte) bool {
	if status == http.StatusConflict {
		return true
	}
	var perr struct {
		Code string `json:"code"`
	}
	return json.Unmarshal(body, &perr) == nil && perr.Code == uniqueViolation
}

// APIKeyInfo is what can be read from a Supabase API key without verifying it.
type APIKeyInfo struct {
	Role      string
	ExpiresAt time.Time
}

// InspectAPIKey decodes the claims of a JWT-shaped API key. The signature is not
// checked; the directory does that.
func InspectAPIKey(key string) (APIKeyInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return APIKeyInfo{}, err
	}
	var info APIKeyInfo
	info.Role, _ = claims["role"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

func (s *Store) checkAPIKey() {
	if s.apiKey == "" {
		s.logger.Warn("directory API key is empty")
		return
	}
	info, err := InspectAPIKey(s.apiKey)
	if err != nil {
		// opaque keys are fine
		return
	}
	if info.Role == "anon" {
		s.logger.Warn("directory API key has the anon role; inserts may be rejected by row level security")
	}
	if !info.ExpiresAt.IsZero() && info.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("directory API key has expired", "expired_at", info.ExpiresAt)
	}
}
