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
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"cgt.name/pkg/go-mwclient/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakeAPI answers wbgetclaims from canned responses and records the calls.
type FakeAPI struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []params.Values
}

func (api *FakeAPI) GetRaw(p params.Values) ([]byte, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.calls = append(api.calls, p)
	body, ok := api.responses[p["entity"]]
	if !ok {
		return nil, fmt.Errorf("no such entity: %s", p["entity"])
	}
	return []byte(body), nil
}

func (api *FakeAPI) entities() []string {
	api.mu.Lock()
	defer api.mu.Unlock()
	var ids []string
	for _, p := range api.calls {
		ids = append(ids, p["entity"])
	}
	return ids
}

const q1Claims = `{
  "claims": {
    "P1": [{
      "mainsnak": {
        "snaktype": "value", "property": "P1",
        "datavalue": {"value": {"entity-type": "item", "numeric-id": 11, "id": "Q11"}, "type": "wikibase-entityid"},
        "datatype": "wikibase-item"
      },
      "type": "statement", "id": "Q1$abc", "rank": "normal",
      "qualifiers": {
        "P5": [{"snaktype": "value", "property": "P5", "datavalue": {"value": "ignored", "type": "string"}}]
      }
    }],
    "P29": [{
      "mainsnak": {
        "snaktype": "value", "property": "P29",
        "datavalue": {"value": "https://sb.example.org/?q=", "type": "string"},
        "datatype": "url"
      },
      "type": "statement", "rank": "normal"
    }],
    "P9": [{
      "mainsnak": {
        "snaktype": "value", "property": "P9",
        "datavalue": {"value": {"latitude": 47.37, "longitude": 8.54, "altitude": null, "precision": 0.01}, "type": "globecoordinate"}
      }
    }, {
      "mainsnak": {"snaktype": "novalue", "property": "P9"}
    }]
  }
}`

const q2Claims = `{
  "claims": {
    "P1": [{
      "mainsnak": {
        "snaktype": "value", "property": "P1",
        "datavalue": {"value": {"entity-type": "item", "id": "Q11"}, "type": "wikibase-entityid"}
      }
    }]
  }
}`

func newFakeAPI() *FakeAPI {
	return &FakeAPI{responses: map[string]string{"Q1": q1Claims, "Q2": q2Claims}}
}

func TestParseClaims(t *testing.T) {
	triples, err := ParseClaims("Q1", []byte(q1Claims))
	require.NoError(t, err)

	want := []Triple{
		{EntityID: "Q1", PropertyID: "P1", Value: Value{Kind: KindEntity, ID: "Q11", Text: "Q11"}},
		{EntityID: "Q1", PropertyID: "P29", Value: Value{Kind: KindScalar, Text: "https://sb.example.org/?q="}},
		{EntityID: "Q1", PropertyID: "P9", Value: Value{Kind: KindCoordinate, Latitude: 47.37, Longitude: 8.54, Text: "47.37,8.54"}},
		{EntityID: "Q1", PropertyID: "P9", Value: Value{}},
	}
	assert.Equal(t, want, triples)
}

func TestParseClaimsDeepMainsnak(t *testing.T) {
	body := `{"wrapper": [{"deeper": {"mainsnak": {"property": "P7", "datavalue": {"value": {"amount": "+3", "unit": "1"}}}}}]}`
	triples, err := ParseClaims("Q5", []byte(body))
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "P7", triples[0].PropertyID)
	assert.Equal(t, "+3", triples[0].Value.String())
}

func TestParseClaimsAPIError(t *testing.T) {
	body := `{"error": {"code": "no-such-entity", "info": "Could not find an entity with the ID \"Q999\"."}}`
	_, err := ParseClaims("Q999", []byte(body))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "no-such-entity", apiErr.Code)
	assert.Equal(t, "Q999", apiErr.EntityID)
}

func TestParseClaimsNotJSON(t *testing.T) {
	_, err := ParseClaims("Q1", []byte("<html></html>"))
	assert.Error(t, err)
}

func TestTriplesDedupe(t *testing.T) {
	api := newFakeAPI()
	f := NewFetcher(api)
	triples, err := f.Triples(context.Background(), []string{"Q1", "Q1", "Q2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Q1", "Q2"}, api.entities())
	assert.Len(t, triples, 5)
	for _, p := range api.calls {
		assert.Equal(t, "wbgetclaims", p["action"])
		assert.Equal(t, "json", p["format"])
	}
}

func TestTriplesConcurrent(t *testing.T) {
	api := newFakeAPI()
	f := NewFetcher(api, WithConcurrency(4))
	triples, err := f.Triples(context.Background(), []string{"Q2", "Q1", "Q2", "Q1"})
	require.NoError(t, err)
	assert.Len(t, triples, 5)

	calls := api.entities()
	sort.Strings(calls)
	assert.Equal(t, []string{"Q1", "Q2"}, calls)
}

func TestTriplesError(t *testing.T) {
	f := NewFetcher(newFakeAPI())
	_, err := f.Triples(context.Background(), []string{"Q1", "Q404"})
	assert.ErrorContains(t, err, "Q404")
}

func TestTriplesCanceled(t *testing.T) {
	api := newFakeAPI()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFetcher(api).Triples(ctx, []string{"Q1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.entities())
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"Q3", "Q1", "Q2"}, Dedupe([]string{"Q3", "Q1", "Q3", "Q2", "Q1"}))
	assert.Empty(t, Dedupe(nil))
}
