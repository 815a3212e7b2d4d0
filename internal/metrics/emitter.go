// Package metrics ships counters and gauges to the Datadog series API.
// Emission is best-effort: a metrics outage never fails a request.
package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Emitter posts metric series. A nil Emitter is valid and drops
// everything, so callers never branch on whether metrics are enabled.
type Emitter struct {
	apiKey string
	url    string
	tags   []string
	client *http.Client
}

type series struct {
	Series []metric `json:"series"`
}

type metric struct {
	Metric string       `json:"metric"`
	Type   string       `json:"type"`
	Points [][2]float64 `json:"points"`
	Tags   []string     `json:"tags,omitempty"`
}

// New creates an Emitter. An empty apiKey disables metrics (returns nil).
// site defaults to datadoghq.com.
func New(apiKey, site string, tags []string) *Emitter {
	if apiKey == "" {
		return nil
	}
	if site == "" {
		site = "datadoghq.com"
	}
	return &Emitter{
		apiKey: apiKey,
		url:    fmt.Sprintf("https://api.%s/api/v1/series", site),
		tags:   tags,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Count emits a count metric with the given value.
func (e *Emitter) Count(name string, value float64, tags ...string) {
	e.emit(name, "count", value, tags)
}

// Gauge emits a gauge metric with the given value.
func (e *Emitter) Gauge(name string, value float64, tags ...string) {
	e.emit(name, "gauge", value, tags)
}

func (e *Emitter) emit(name, typ string, value float64, tags []string) {
	if e == nil {
		return
	}
	payload := series{Series: []metric{{
		Metric: name,
		Type:   typ,
		Points: [][2]float64{{float64(time.Now().Unix()), value}},
		Tags:   append(append([]string(nil), e.tags...), tags...),
	}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	go func() {
		req, err := http.NewRequest(http.MethodPost, e.url, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("DD-API-KEY", e.apiKey)
		resp, err := e.client.Do(req)
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
}
