// Package projector runs SPARQL queries over HTTP GET and reshapes the JSON
// results into records, tables and label lookups.
//
// Failures are soft: Execute returns no result when the endpoint is
// unreachable, answers with an error status, returns something that is not
// SPARQL JSON, or matches nothing. Callers check for a nil *Result. The
// reason is logged and counted, and Fetch exposes it as a *QueryError.
package projector

//
// wbconn, SPARQL and claims helpers for Wikibase instances
// Copyright (C) 2020 Naypta

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.

// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/knakk/sparql"
	"github.com/prometheus/client_golang/prometheus"
)

// Mode selects the shape Execute returns.
type Mode string

const (
	ModeRaw     Mode = "raw"
	ModeRecords Mode = "records"
	ModeTable   Mode = "table"
	ModeLookup  Mode = "lookup"
)

// Modes lists the valid output modes.
var Modes = []Mode{ModeRaw, ModeRecords, ModeTable, ModeLookup}

// ParseMode accepts a mode name. "dataframe" is an alias for table.
func ParseMode(s string) (Mode, error) {
	if s == "dataframe" {
		return ModeTable, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w %q: must be one of %v", ErrUnknownMode, s, Modes)
}

// Request is one query to run.
type Request struct {
	Endpoint string
	Query    string
	Mode     Mode

	// IDVar and LabelVar name the identifier and label variables for
	// ModeLookup. Leave both empty to use the first two selected variables.
	IDVar    string
	LabelVar string

	// PairLabels makes a lookup without IDVar and LabelVar use a selected
	// "?x ?xLabel" pair when there is one, and the first two variables
	// otherwise.
	PairLabels bool
}

// Result holds the projection selected by Mode; the other fields are nil.
type Result struct {
	Mode    Mode
	Raw     *jason.Object
	Records []Record
	Table   *Table
	Lookup  Lookup
}

// Response is a successfully fetched, non-empty result set.
type Response struct {
	Body    []byte
	Results *sparql.Results
}

// Projector issues SPARQL queries. It is safe for concurrent use.
type Projector struct {
	client     *http.Client
	userAgent  string
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
	registerer prometheus.Registerer
	metrics    *metrics
}

// Option configures a Projector.
type Option func(*Projector)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Projector) { p.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Projector) { p.userAgent = ua }
}

// WithTimeout bounds each HTTP attempt. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Projector) { p.timeout = d }
}

// WithRetries retries transport failures and 5xx/429 responses n times.
func WithRetries(n int) Option {
	return func(p *Projector) { p.retries = n }
}

// WithLogger sets the logger for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Projector) { p.logger = l }
}

// WithRegisterer registers query metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Projector) { p.registerer = reg }
}

// New returns a Projector. Without options it uses http.DefaultClient, no
// timeout and no retries.
func New(opts ...Option) *Projector {
	p := &Projector{
		client:     http.DefaultClient,
		userAgent:  "wbconn/1.0",
		retryDelay: 100 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retries < 0 {
		p.retries = 0
	}
	p.metrics = newMetrics(p.registerer)
	return p
}

// Execute runs req and projects the result. It returns (nil, nil) when the
// query yields nothing for any reason; the reason is logged. An error means
// the request itself is wrong: an unknown mode, or lookup fields that the
// result does not have.
func (p *Projector) Execute(ctx context.Context, req Request) (*Result, error) {
	switch req.Mode {
	case ModeRaw, ModeRecords, ModeTable, ModeLookup:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMode, req.Mode)
	}

	logger := p.logger.With("query_id", uuid.Must(uuid.NewV7()).String(), "endpoint", req.Endpoint, "mode", string(req.Mode))
	resp, err := p.Fetch(ctx, req.Endpoint, req.Query)
	if err != nil {
		if kind, ok := KindOf(err); ok {
			logger.Warn("sparql query gave no result", "kind", string(kind), "error", err)
			return nil, nil
		}
		return nil, err
	}
	logger.Debug("sparql query ok", "vars", resp.Results.Head.Vars, "rows", len(resp.Results.Results.Bindings))

	result := &Result{Mode: req.Mode}
	switch req.Mode {
	case ModeRaw:
		obj, err := jason.NewObjectFromBytes(resp.Body)
		if err != nil {
			logger.Warn("sparql query gave no result", "kind", string(FailureDecode), "error", err)
			return nil, nil
		}
		result.Raw = obj
	case ModeRecords:
		result.Records = Records(resp.Results)
	case ModeTable:
		result.Table = NewTable(resp.Results)
	case ModeLookup:
		idVar, labelVar := req.IDVar, req.LabelVar
		if req.PairLabels && idVar == "" && labelVar == "" {
			idVar, labelVar, _ = LabelPair(resp.Results.Head.Vars)
		}
		lookup, skipped, err := newLookup(resp.Results, idVar, labelVar)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			logger.Debug("lookup skipped solutions with unbound variables", "skipped", skipped)
		}
		result.Lookup = lookup
	}
	return result, nil
}

// Fetch runs query against endpoint and decodes the result set. Every
// failure, including an empty result set, is a *QueryError.
func (p *Projector) Fetch(ctx context.Context, endpoint, query string) (*Response, error) {
	started := time.Now()
	var resp *Response
	var err error
	retry.Do(
		func() error {
			resp, err = p.fetchOnce(ctx, endpoint, query)
			return err
		},
		retry.Attempts(uint(p.retries+1)),
		retry.Delay(p.retryDelay),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && retryable(err)
		}),
	)

	outcome := "ok"
	if kind, ok := KindOf(err); ok {
		outcome = string(kind)
	}
	p.metrics.observe(outcome, started)
	return resp, err
}

func (p *Projector) fetchOnce(ctx context.Context, endpoint, query string) (*Response, error) {
	fail := func(kind FailureKind, status int, err error) error {
		return &QueryError{Kind: kind, Endpoint: endpoint, Status: status, Err: err}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fail(FailureTransport, 0, err)
	}
	params := u.Query()
	params.Set("format", "json")
	params.Set("query", query)
	u.RawQuery = params.Encode()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fail(FailureTransport, 0, err)
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", p.userAgent)

	httpResp, err := p.client.Do(req)
	if err != nil {
		return nil, fail(FailureTransport, 0, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fail(FailureStatus, httpResp.StatusCode, nil)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fail(FailureTransport, 0, err)
	}

	res, err := sparql.ParseJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fail(FailureDecode, 0, err)
	}
	if len(res.Results.Bindings) == 0 {
		return nil, fail(FailureEmpty, 0, nil)
	}
	return &Response{Body: body, Results: res}, nil
}

func retryable(err error) bool {
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		return false
	}
	switch qerr.Kind {
	case FailureTransport:
		return true
	case FailureStatus:
		return qerr.Status >= 500 || qerr.Status == http.StatusTooManyRequests
	}
	return false
}
