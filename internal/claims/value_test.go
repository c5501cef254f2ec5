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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func mustParse(t *testing.T, s string) *fastjson.Value {
	t.Helper()
	v, err := fastjson.Parse(s)
	require.NoError(t, err)
	return v
}

func TestFlattenValue(t *testing.T) {
	tests := []struct {
		name string
		json string
		kind Kind
		text string
	}{
		{
			name: "entity",
			json: `{"entity-type": "item", "numeric-id": 4, "id": "Q4"}`,
			kind: KindEntity,
			text: "Q4",
		},
		{
			name: "id wins over coordinates",
			json: `{"latitude": 47.37, "longitude": 8.54, "id": "Q72"}`,
			kind: KindEntity,
			text: "Q72",
		},
		{
			name: "coordinates",
			json: `{"latitude": 47.37, "longitude": 8.54, "altitude": null, "precision": 0.01, "globe": "http://www.wikidata.org/entity/Q2"}`,
			kind: KindCoordinate,
			text: "47.37,8.54",
		},
		{
			name: "null id falls through to coordinates",
			json: `{"id": null, "latitude": -33.9, "longitude": 151.2}`,
			kind: KindCoordinate,
			text: "-33.9,151.2",
		},
		{
			name: "latitude without longitude falls back to first field",
			json: `{"latitude": 10, "longitude": null}`,
			kind: KindScalar,
			text: "10",
		},
		{
			name: "quantity",
			json: `{"amount": "+1234", "unit": "1"}`,
			kind: KindScalar,
			text: "+1234",
		},
		{
			name: "time",
			json: `{"time": "+2020-01-01T00:00:00Z", "timezone": 0, "precision": 11}`,
			kind: KindScalar,
			text: "+2020-01-01T00:00:00Z",
		},
		{
			name: "first field follows document order",
			json: `{"zeta": "z", "alpha": "a"}`,
			kind: KindScalar,
			text: "z",
		},
		{
			name: "monolingual text",
			json: `{"text": "Zürich", "language": "de"}`,
			kind: KindScalar,
			text: "Zürich",
		},
		{
			name: "bare string",
			json: `"https://example.org/data.csv"`,
			kind: KindScalar,
			text: "https://example.org/data.csv",
		},
		{
			name: "bare number",
			json: `12.50`,
			kind: KindScalar,
			text: "12.50",
		},
		{
			name: "null",
			json: `null`,
			kind: KindNone,
		},
		{
			name: "empty object",
			json: `{}`,
			kind: KindNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenValue(mustParse(t, tt.json))
			assert.Equal(t, tt.kind, got.Kind, "kind %s", got.Kind)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func TestFlattenValueCoordinates(t *testing.T) {
	got := FlattenValue(mustParse(t, `{"latitude": 47.37, "longitude": 8.54}`))
	assert.Equal(t, 47.37, got.Latitude)
	assert.Equal(t, 8.54, got.Longitude)
}

func TestFlattenValueNil(t *testing.T) {
	assert.True(t, FlattenValue(nil).IsNull())
	assert.True(t, FlattenField(nil, "value").IsNull())
}

func TestFlattenField(t *testing.T) {
	datavalue := mustParse(t, `{"value": {"entity-type": "property", "id": "P31"}, "type": "wikibase-entityid"}`)
	got := FlattenField(datavalue, "value")
	assert.Equal(t, KindEntity, got.Kind)
	assert.Equal(t, "P31", got.ID)

	assert.True(t, FlattenField(datavalue, "missing").IsNull())
}

func TestValueMarshalJSON(t *testing.T) {
	b, err := json.Marshal([]Value{{Kind: KindScalar, Text: "x"}, {}})
	require.NoError(t, err)
	assert.Equal(t, `["x",null]`, string(b))
}
