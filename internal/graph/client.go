// Package graph is a minimal client for the Neo4j transactional HTTP
// endpoint. The core issues single auto-commit Cypher statements; no
// multi-statement transactions are needed.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds graph store connection settings.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// Client issues Cypher statements over the transactional HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a graph client. Zero timeout defaults to 5s.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type txRequest struct {
	Statements []txStatement `json:"statements"`
}

type txStatement struct {
	Statement  string         `json:"statement"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type txResponse struct {
	Results []struct {
		Columns []string `json:"columns"`
		Data    []struct {
			Row []any `json:"row"`
		} `json:"data"`
	} `json:"results"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Run executes one Cypher statement in an auto-commit transaction and
// returns the rows as column-keyed maps.
func (c *Client) Run(ctx context.Context, stmt string, params map[string]any) ([]map[string]any, error) {
	body, err := json.Marshal(txRequest{
		Statements: []txStatement{{Statement: stmt, Parameters: params}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal statement: %w", err)
	}

	url := fmt.Sprintf("%s/db/%s/tx/commit", strings.TrimRight(c.cfg.URL, "/"), c.cfg.Database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("graph HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var tx txResponse
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode graph response: %w", err)
	}
	if len(tx.Errors) > 0 {
		return nil, fmt.Errorf("cypher error %s: %s", tx.Errors[0].Code, tx.Errors[0].Message)
	}
	if len(tx.Results) == 0 {
		return nil, nil
	}

	result := tx.Results[0]
	rows := make([]map[string]any, 0, len(result.Data))
	for _, d := range result.Data {
		row := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(d.Row) {
				row[col] = d.Row[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
