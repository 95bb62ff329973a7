// Package upstream wraps the hospital microservices the gateway glues
// together. Every service speaks JSON with a {code, data} envelope; these
// clients unwrap it and hand back typed values.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/graborgan/internal/observability"
)

// StatusError reports a non-2xx answer from an upstream service.
type StatusError struct {
	Service string
	Status  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d", e.Service, e.Status)
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func doJSON(ctx context.Context, hc *http.Client, service, method, url string, body, out any) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", service, err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.Do(req)
	if err != nil {
		observability.UpstreamRequests.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.UpstreamRequests.WithLabelValues(service, "error").Inc()
		return &StatusError{Service: service, Status: resp.StatusCode}
	}
	observability.UpstreamRequests.WithLabelValues(service, "ok").Inc()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}

// unwrapEnvelope validates the {code, data} convention and decodes data.
func unwrapEnvelope(env envelope, service string, out any) error {
	if env.Code != 200 {
		return fmt.Errorf("%s: unexpected envelope code %d", service, env.Code)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode envelope data: %w", service, err)
	}
	return nil
}
