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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikibase-connection/internal/projector"
)

func TestWide(t *testing.T) {
	triples := []Triple{
		{EntityID: "Q20", PropertyID: "P1", Value: Value{Kind: KindEntity, ID: "Q11", Text: "Q11"}},
		{EntityID: "Q20", PropertyID: "P29", Value: Value{Kind: KindScalar, Text: "https://a"}},
		{EntityID: "Q20", PropertyID: "P29", Value: Value{Kind: KindScalar, Text: "https://b"}},
		{EntityID: "Q21", PropertyID: "P1", Value: Value{Kind: KindEntity, ID: "Q11", Text: "Q11"}},
		{EntityID: "Q21", PropertyID: "P9", Value: Value{}},
	}
	table := Wide(triples, map[string]string{"P1": "instance of"})

	assert.Equal(t, []string{"entity_id", "instance of", "P29", "P9"}, table.Columns)
	require.Equal(t, 2, table.Len())

	row := table.Row(0)
	id, _ := row.Get("entity_id")
	assert.Equal(t, "Q20", id)
	urls, _ := row.Get("P29")
	assert.Equal(t, "https://a|https://b", urls)
	_, ok := row.Get("P9")
	assert.False(t, ok)

	row = table.Row(1)
	class, _ := row.Get("instance of")
	assert.Equal(t, "Q11", class)
	_, ok = row.Get("P29")
	assert.False(t, ok)
}

func TestWideEmpty(t *testing.T) {
	table := Wide(nil, nil)
	assert.Equal(t, []string{"entity_id"}, table.Columns)
	assert.Equal(t, 0, table.Len())
}

func TestInvert(t *testing.T) {
	got := Invert(projector.Lookup{"instance of": "P1", "subclass of": "P2", "is a": "P1"})
	assert.Equal(t, map[string]string{"P1": "instance of", "P2": "subclass of"}, got)
}
