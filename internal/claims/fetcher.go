// Package claims fetches entity claims through the MediaWiki wbgetclaims
// API and flattens them into (entity, property, value) triples.
package claims

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
	"fmt"
	"log/slog"

	"cgt.name/pkg/go-mwclient/params"
	"github.com/antonholmquist/jason"
	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"
)

// Getter is the subset of *mwclient.Client used here.
type Getter interface {
	GetRaw(p params.Values) ([]byte, error)
}

// Triple is one flattened claim.
type Triple struct {
	EntityID   string `json:"entity_id"`
	PropertyID string `json:"property_id"`
	Value      Value  `json:"value"`
}

// APIError is an error envelope returned by the MediaWiki API.
type APIError struct {
	EntityID string
	Code     string
	Info     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wbgetclaims %s: %s: %s", e.EntityID, e.Code, e.Info)
}

// Fetcher turns entity identifiers into claim triples.
type Fetcher struct {
	api         Getter
	concurrency int
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency allows n wbgetclaims calls in flight.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) { f.concurrency = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher returns a Fetcher that calls api once per entity, sequentially
// unless WithConcurrency says otherwise.
func NewFetcher(api Getter, opts ...Option) *Fetcher {
	f := &Fetcher{api: api, concurrency: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	return f
}

// Triples fetches the claims of every distinct id and flattens them.
// Triples are grouped by entity; no other order is promised.
func (f *Fetcher) Triples(ctx context.Context, ids []string) ([]Triple, error) {
	unique := Dedupe(ids)
	perEntity := make([][]Triple, len(unique))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, id := range unique {
		i, id := i, id
		g.Go(func() error {
			triples, err := f.Claims(ctx, id)
			if err != nil {
				return err
			}
			perEntity[i] = triples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Triple
	for _, triples := range perEntity {
		all = append(all, triples...)
	}
	return all, nil
}

// Claims fetches and flattens the claims of a single entity. The API client
// does not take a context, so ctx is only checked before the call; the
// client's own HTTP timeout bounds the call itself.
func (f *Fetcher) Claims(ctx context.Context, id string) ([]Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := f.api.GetRaw(params.Values{
		"action": "wbgetclaims",
		"entity": id,
		"format": "json",
	})
	if err != nil {
		return nil, fmt.Errorf("wbgetclaims %s: %w", id, err)
	}
	triples, err := ParseClaims(id, body)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetched claims", "entity", id, "claims", len(triples))
	return triples, nil
}

// ParseClaims flattens a wbgetclaims response. Every "mainsnak" object is
// taken, however deeply it is nested.
func ParseClaims(entityID string, body []byte) ([]Triple, error) {
	envelope, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("wbgetclaims %s: %w", entityID, err)
	}
	if apiErr, err := envelope.GetObject("error"); err == nil {
		code, _ := apiErr.GetString("code")
		info, _ := apiErr.GetString("info")
		return nil, &APIError{EntityID: entityID, Code: code, Info: info}
	}

	doc, err := fastjson.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("wbgetclaims %s: %w", entityID, err)
	}
	var triples []Triple
	walkSnaks(doc, func(snak *fastjson.Value) {
		triples = append(triples, Triple{
			EntityID:   entityID,
			PropertyID: string(snak.GetStringBytes("property")),
			Value:      FlattenField(snak.Get("datavalue"), "value"),
		})
	})
	return triples, nil
}

func walkSnaks(v *fastjson.Value, fn func(*fastjson.Value)) {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		obj.Visit(func(key []byte, child *fastjson.Value) {
			if string(key) == "mainsnak" && child.Type() == fastjson.TypeObject {
				fn(child)
				return
			}
			walkSnaks(child, fn)
		})
	case fastjson.TypeArray:
		items, _ := v.Array()
		for _, item := range items {
			walkSnaks(item, fn)
		}
	}
}

// Dedupe drops repeated ids, keeping the first occurrence.
func Dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}
