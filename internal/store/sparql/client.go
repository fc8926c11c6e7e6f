package sparql

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
)

const (
	queryTimeout = 60 * time.Second

	xsdInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	xsdDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
)

// Client speaks the SPARQL protocol over HTTP: SELECT queries go out as a
// form POST, results come back as application/sparql-results+json.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: queryTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

type resultSet struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]term `json:"bindings"`
	} `json:"results"`
}

type term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype"`
}

// Select runs a SELECT query and returns one map per solution, with typed
// literals coerced: xsd:integer to int, xsd:dateTime to time.Time,
// everything else to its string value. Unbound variables map to nil.
func (c *Client) Select(ctx context.Context, query string) ([]map[string]any, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("sparql: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sparql: endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rs resultSet
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return nil, fmt.Errorf("sparql: decode results: %w", err)
	}
	return decodeBindings(&rs), nil
}

func decodeBindings(rs *resultSet) []map[string]any {
	if len(rs.Results.Bindings) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(rs.Results.Bindings))
	for _, binding := range rs.Results.Bindings {
		row := make(map[string]any, len(rs.Head.Vars))
		for _, name := range rs.Head.Vars {
			row[name] = coerce(binding, name)
		}
		out = append(out, row)
	}
	return out
}

func coerce(binding map[string]term, name string) any {
	t, ok := binding[name]
	if !ok || t.Value == "" {
		return nil
	}
	switch t.Datatype {
	case xsdInteger:
		if n, err := strconv.Atoi(t.Value); err == nil {
			return n
		}
	case xsdDateTime:
		if ts, err := time.Parse(time.RFC3339, t.Value); err == nil {
			return ts
		}
	}
	return t.Value
}
