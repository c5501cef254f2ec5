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
	"strings"

	"wikibase-connection/internal/projector"
)

// MultiValueSeparator joins the values of a property that occurs more than
// once on the same entity.
const MultiValueSeparator = "|"

// Wide reshapes triples into one row per entity and one column per property.
// The first column is "entity_id"; property columns follow in first-seen
// order and are headed by labels[pid] when known, else by the property id.
// Null values are dropped; a cell with no values is nil.
func Wide(triples []Triple, labels map[string]string) *projector.Table {
	var entities, properties []string
	entityRow := make(map[string]int)
	propertyCol := make(map[string]int)
	cells := make(map[[2]int][]string)

	for _, t := range triples {
		row, ok := entityRow[t.EntityID]
		if !ok {
			row = len(entities)
			entityRow[t.EntityID] = row
			entities = append(entities, t.EntityID)
		}
		col, ok := propertyCol[t.PropertyID]
		if !ok {
			col = len(properties)
			propertyCol[t.PropertyID] = col
			properties = append(properties, t.PropertyID)
		}
		if t.Value.IsNull() {
			continue
		}
		key := [2]int{row, col}
		cells[key] = append(cells[key], t.Value.Text)
	}

	table := &projector.Table{
		Columns: make([]string, 0, len(properties)+1),
		Rows:    make([][]*string, len(entities)),
	}
	table.Columns = append(table.Columns, "entity_id")
	for _, pid := range properties {
		header := pid
		if label, ok := labels[pid]; ok {
			header = label
		}
		table.Columns = append(table.Columns, header)
	}

	for row, id := range entities {
		entity := id
		table.Rows[row] = make([]*string, len(properties)+1)
		table.Rows[row][0] = &entity
		for col := range properties {
			values, ok := cells[[2]int{row, col}]
			if !ok {
				continue
			}
			joined := strings.Join(values, MultiValueSeparator)
			table.Rows[row][col+1] = &joined
		}
	}
	return table
}

// Invert turns a label -> id lookup into id -> label, for use with Wide.
// If several labels map to the same id, the smallest label is kept.
func Invert(lookup projector.Lookup) map[string]string {
	inverted := make(map[string]string, len(lookup))
	for label, id := range lookup {
		if prev, ok := inverted[id]; ok && prev < label {
			continue
		}
		inverted[id] = label
	}
	return inverted
}
