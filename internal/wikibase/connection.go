// Package wikibase is a read-only client for one Wikibase instance: canned
// SPARQL queries for its properties, classes and datasources, and claim
// fetching through the MediaWiki API.
package wikibase

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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	mwclient "cgt.name/pkg/go-mwclient"
	"github.com/prometheus/client_golang/prometheus"

	"wikibase-connection/internal/claims"
	"wikibase-connection/internal/config"
	"wikibase-connection/internal/projector"
)

// ErrNoAPI is returned by claim operations when no MediaWiki API is configured.
var ErrNoAPI = errors.New("no MediaWiki API URL configured")

// Connection talks to one Wikibase instance. Its configuration is fixed at
// construction.
type Connection struct {
	cfg       config.Config
	projector *projector.Projector
	claims    *claims.Fetcher
	logger    *slog.Logger
}

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	registerer prometheus.Registerer
	api        claims.Getter
}

// Option configures a Connection.
type Option func(*options)

// WithHTTPClient sets the client for SPARQL requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer registers query metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithAPI replaces the MediaWiki client used for wbgetclaims.
func WithAPI(api claims.Getter) Option {
	return func(o *options) { o.api = api }
}

// New validates cfg and sets up the SPARQL projector and, when an API URL
// is known, an anonymous MediaWiki client.
func New(cfg config.Config, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{httpClient: http.DefaultClient, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Connection{
		cfg:    cfg,
		logger: o.logger,
		projector: projector.New(
			projector.WithHTTPClient(o.httpClient),
			projector.WithUserAgent(cfg.UserAgent()),
			projector.WithTimeout(cfg.Timeout),
			projector.WithRetries(cfg.Retries),
			projector.WithLogger(o.logger),
			projector.WithRegisterer(o.registerer),
		),
	}

	api := o.api
	if api == nil && cfg.APIURL() != "" {
		client, err := newAPIClient(cfg)
		if err != nil {
			return nil, err
		}
		api = client
	}
	if api != nil {
		c.claims = claims.NewFetcher(api,
			claims.WithConcurrency(cfg.Concurrency),
			claims.WithLogger(o.logger),
		)
	}
	return c, nil
}

// newAPIClient creates an anonymous MediaWiki client. cfg.Timeout, when
// set, replaces the client's own 30 second limit per request.
func newAPIClient(cfg config.Config) (*mwclient.Client, error) {
	client, err := mwclient.New(cfg.APIURL(), cfg.UserAgent())
	if err != nil {
		return nil, fmt.Errorf("failed to create MediaWiki client: %w", err)
	}
	if cfg.Timeout > 0 {
		client.SetHTTPTimeout(cfg.Timeout)
	}
	return client, nil
}

// Config returns a copy of the connection's configuration.
func (c *Connection) Config() config.Config {
	return c.cfg
}

// Query runs query against endpoint, or the configured SPARQL endpoint
// when endpoint is empty. Lookups use the first two selected variables.
// A nil Result means no result; see projector.Execute.
func (c *Connection) Query(ctx context.Context, query, endpoint string, mode projector.Mode) (*projector.Result, error) {
	return c.Execute(ctx, projector.Request{Endpoint: endpoint, Query: query, Mode: mode})
}

// Execute runs req, filling in the configured endpoint if req has none.
func (c *Connection) Execute(ctx context.Context, req projector.Request) (*projector.Result, error) {
	if req.Endpoint == "" {
		req.Endpoint = c.cfg.SPARQLEndpoint
	}
	return c.projector.Execute(ctx, req)
}

// ItemByLabel finds the items that have label, in the configured
// language, as the value of some property. The result is raw.
func (c *Connection) ItemByLabel(ctx context.Context, label string) (*projector.Result, error) {
	literal, err := c.labelLiteral(label)
	if err != nil {
		return nil, err
	}
	q, err := c.prepare("item-by-label", queryParams{Label: literal})
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, q, "", projector.ModeRaw)
}

// Properties lists all properties. The usual mode is lookup: label -> PID.
func (c *Connection) Properties(ctx context.Context, mode projector.Mode) (*projector.Result, error) {
	return c.canned(ctx, "properties", mode, "property", "propertyLabel")
}

// Classification lists the items used as classes. The usual mode is lookup.
func (c *Connection) Classification(ctx context.Context, mode projector.Mode) (*projector.Result, error) {
	return c.canned(ctx, "classification", mode, "item", "itemLabel")
}

// Datasources lists the instances of the dataset class with their query
// strings. The usual mode is table.
func (c *Connection) Datasources(ctx context.Context, mode projector.Mode) (*projector.Result, error) {
	return c.canned(ctx, "datasources", mode, "ds", "dsLabel")
}

func (c *Connection) canned(ctx context.Context, tag string, mode projector.Mode, idVar, labelVar string) (*projector.Result, error) {
	ns, err := c.Namespaces()
	if err != nil {
		return nil, err
	}
	q, err := c.prepare(tag, queryParams{
		Namespaces:   ns,
		Language:     c.cfg.Language,
		InstanceOf:   c.cfg.Schema.InstanceOf,
		SubclassOf:   c.cfg.Schema.SubclassOf,
		DatasetClass: c.cfg.Schema.DatasetClass,
		QueryString:  c.cfg.Schema.QueryString,
	})
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, projector.Request{Query: q, Mode: mode, IDVar: idVar, LabelVar: labelVar})
}

// PropertyClaims fetches the claims of every distinct entity in ids as
// (entity, property, value) triples.
func (c *Connection) PropertyClaims(ctx context.Context, ids []string) ([]claims.Triple, error) {
	if c.claims == nil {
		return nil, ErrNoAPI
	}
	return c.claims.Triples(ctx, ids)
}

// DatasourceClaims fetches the claims of every datasource and pivots them
// into one row per datasource, with property labels as column headers.
// It returns nil when there are no datasources.
func (c *Connection) DatasourceClaims(ctx context.Context) (*projector.Table, error) {
	ds, err := c.Datasources(ctx, projector.ModeTable)
	if err != nil || ds == nil {
		return nil, err
	}
	col := ds.Table.Column("ds")
	var ids []string
	for _, row := range ds.Table.Rows {
		if row[col] != nil {
			ids = append(ids, projector.IDSuffix(*row[col]))
		}
	}

	triples, err := c.PropertyClaims(ctx, ids)
	if err != nil {
		return nil, err
	}

	var labels map[string]string
	props, err := c.Properties(ctx, projector.ModeLookup)
	if err != nil {
		return nil, err
	}
	if props != nil {
		labels = claims.Invert(props.Lookup)
	} else {
		c.logger.Warn("no property labels; using property ids as column headers")
	}
	return claims.Wide(triples, labels), nil
}

// ParseSPARQLURL splits a query service link such as
// https://kb.example.org/query/sparql?query=SELECT... into the endpoint and
// the query text held in param ("query" when empty).
func ParseSPARQLURL(rawURL, param string) (endpoint, query string, err error) {
	if param == "" {
		param = "query"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid query URL: %w", err)
	}
	values, ok := u.Query()[param]
	if !ok || len(values) == 0 {
		return "", "", fmt.Errorf("query URL has no %q parameter", param)
	}
	endpoint = fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path)
	return endpoint, values[0], nil
}
