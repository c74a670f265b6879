package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PipelineDash/internal/domain"
	"PipelineDash/internal/ports"
)

// PostgRESTStore reads pipeline tables through a PostgREST (Supabase) endpoint.
type PostgRESTStore struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ ports.Store = (*PostgRESTStore)(nil)

// NewPostgRESTStore targets baseURL, e.g. https://project.supabase.co.
func NewPostgRESTStore(baseURL, apiKey string, client *http.Client) *PostgRESTStore {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PostgRESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    client,
	}
}

// Count asks PostgREST for an exact count without fetching rows.
func (s *PostgRESTStore) Count(ctx context.Context, q domain.Query) (int, error) {
	params := encodeFilters(q.Filters)
	params.Set("select", "*")

	req, err := s.newRequest(ctx, http.MethodHead, q.Table, params)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("count %s: unexpected status %s", q.Table, resp.Status)
	}

	return parseContentRange(resp.Header.Get("Content-Range"))
}

// Select fetches rows matching q.
func (s *PostgRESTStore) Select(ctx context.Context, q domain.Query) ([]domain.Row, error) {
	params := encodeFilters(q.Filters)
	if len(q.Columns) == 0 {
		params.Set("select", "*")
	} else {
		params.Set("select", strings.Join(q.Columns, ","))
	}
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			parts = append(parts, encodeOrder(o))
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	req, err := s.newRequest(ctx, http.MethodGet, q.Table, params)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("select %s: unexpected status %s: %s", q.Table, resp.Status, strings.TrimSpace(string(excerpt)))
	}

	var rows []domain.Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", q.Table, err)
	}
	return rows, nil
}

func (s *PostgRESTStore) newRequest(ctx context.Context, method string, table domain.Table, params url.Values) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, url.PathEscape(string(table)), params.Encode())
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	return req, nil
}

func encodeFilters(filters []domain.Filter) url.Values {
	params := url.Values{}
	for _, f := range filters {
		switch f.Op {
		case domain.OpIsNull:
			params.Add(f.Column, "is.null")
		default:
			params.Add(f.Column, fmt.Sprintf("%s.%s", f.Op, encodeValue(f.Value)))
		}
	}
	return params
}

func encodeValue(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case nil:
		return "null"
	default:
		return fmt.Sprint(val)
	}
}

func encodeOrder(o domain.Order) string {
	dir := "asc"
	if o.Descending {
		dir = "desc"
	}
	nulls := "nullslast"
	if o.NullsFirst {
		nulls = "nullsfirst"
	}
	return fmt.Sprintf("%s.%s.%s", o.Column, dir, nulls)
}

// parseContentRange extracts the total from "0-24/3573" or "*/0".
func parseContentRange(header string) (int, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return 0, fmt.Errorf("missing count in content-range %q", header)
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("count not provided in content-range %q", header)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parse content-range %q: %w", header, err)
	}
	return n, nil
}
