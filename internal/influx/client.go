// Package influx runs Flux queries against InfluxDB v2 and returns the raw annotated CSV.
package influx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"
)

// maxBodyBytes caps how much of a response is read into memory.
const maxBodyBytes = 8 << 20

type Config struct {
	URL     string
	Token   string
	Org     string
	Timeout time.Duration
}

type Client struct {
	client influxdb2.Client
	query  api.QueryAPI
}

// QueryError is returned when the server answers with a non-2xx status.
type QueryError struct {
	StatusCode int
	Message    string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("influx query failed (HTTP %d): %s", e.StatusCode, e.Message)
}

var (
	// ErrEmptyQuery is returned for a blank Flux text.
	ErrEmptyQuery = errors.New("influx: empty query")
	// ErrResponseTooLarge is returned when a response body exceeds maxBodyBytes.
	ErrResponseTooLarge = fmt.Errorf("influx: response larger than %d bytes", maxBodyBytes)
)

func NewClient(cfg Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP builds the client on hc. The body size cap is installed on a copy of hc.
func NewClientWithHTTP(cfg Config, hc *http.Client) *Client {
	limited := *hc
	base := limited.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	limited.Transport = limitTransport{base: base, limit: maxBodyBytes}

	opts := influxdb2.DefaultOptions().SetHTTPClient(&limited)
	client := influxdb2.NewClientWithOptions(strings.TrimRight(cfg.URL, "/"), cfg.Token, opts)
	return &Client{client: client, query: client.QueryAPI(cfg.Org)}
}

// Query runs flux and returns the CSV body. No retries.
func (c *Client) Query(ctx context.Context, flux string) (string, error) {
	if strings.TrimSpace(flux) == "" {
		return "", ErrEmptyQuery
	}

	csv, err := c.query.QueryRaw(ctx, flux, api.DefaultDialect())
	if err != nil {
		return "", mapError(err)
	}
	return csv, nil
}

func (c *Client) Close() {
	c.client.Close()
}

func mapError(err error) error {
	var herr *influxhttp.Error
	if !errors.As(err, &herr) {
		return fmt.Errorf("influx request: %w", err)
	}
	if herr.Err != nil {
		return fmt.Errorf("influx request: %w", herr.Err)
	}
	if herr.StatusCode == 0 {
		return fmt.Errorf("influx request: %w", err)
	}
	return &QueryError{StatusCode: herr.StatusCode, Message: errorMessage(herr)}
}

func errorMessage(herr *influxhttp.Error) string {
	if s := strings.TrimSpace(herr.Message); s != "" {
		return s
	}
	if s := strings.TrimSpace(herr.Code); s != "" {
		return s
	}
	return fmt.Sprintf("%d %s", herr.StatusCode, http.StatusText(herr.StatusCode))
}

type limitTransport struct {
	base  http.RoundTripper
	limit int64
}

func (t limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = &limitedBody{rc: resp.Body, remaining: t.limit}
	return resp, nil
}

// limitedBody fails with ErrResponseTooLarge instead of truncating.
type limitedBody struct {
	rc        io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, ErrResponseTooLarge
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, ErrResponseTooLarge
	}
	return n, err
}

func (b *limitedBody) Close() error {
	return b.rc.Close()
}
