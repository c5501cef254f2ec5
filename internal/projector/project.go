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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knakk/sparql"
)

// Field is one variable of a Record. A nil Value means the variable was
// unbound in that solution.
type Field struct {
	Name  string
	Value *string
}

// Record is one solution flattened to its values, in head.vars order.
type Record []Field

// Get returns the value bound to name.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			if f.Value == nil {
				return "", false
			}
			return *f.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes the record as an object whose keys keep variable order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if f.Value == nil {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(*f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Records projects every solution onto the full variable list, so all
// records share the same fields even where a solution leaves some unbound.
func Records(res *sparql.Results) []Record {
	vars := res.Head.Vars
	records := make([]Record, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		rec := make(Record, len(vars))
		for i, name := range vars {
			rec[i].Name = name
			if v, ok := b[name]; ok {
				value := v.Value
				rec[i].Value = &value
			}
		}
		records = append(records, rec)
	}
	return records
}

// Table is a result set with uniform rows. Column order is head.vars order.
type Table struct {
	Columns []string
	Rows    [][]*string
}

// NewTable materializes the projection of res as a Table.
func NewTable(res *sparql.Results) *Table {
	vars := res.Head.Vars
	t := &Table{
		Columns: append([]string(nil), vars...),
		Rows:    make([][]*string, 0, len(res.Results.Bindings)),
	}
	for _, b := range res.Results.Bindings {
		row := make([]*string, len(vars))
		for i, name := range vars {
			v, ok := b[name]
			if !ok {
				continue
			}
			value := v.Value
			row[i] = &value
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Row returns row i as a Record. It panics if i is out of range.
func (t *Table) Row(i int) Record {
	row := t.Rows[i]
	rec := make(Record, len(t.Columns))
	for j, name := range t.Columns {
		rec[j] = Field{Name: name, Value: row[j]}
	}
	return rec
}

// Records returns every row as a Record.
func (t *Table) Records() []Record {
	records := make([]Record, len(t.Rows))
	for i := range t.Rows {
		records[i] = t.Row(i)
	}
	return records
}

// Lookup maps a label to an entity identifier such as "Q42".
type Lookup map[string]string

// NewLookup reduces res to label -> identifier. The identifier is the last
// path segment of the idVar value. When idVar and labelVar are both empty,
// the first and second declared variables are used. A later solution with
// the same label overwrites an earlier one. Solutions where either variable
// is unbound are skipped.
func NewLookup(res *sparql.Results, idVar, labelVar string) (Lookup, error) {
	lookup, _, err := newLookup(res, idVar, labelVar)
	return lookup, err
}

// newLookup is NewLookup that also reports how many solutions were skipped.
func newLookup(res *sparql.Results, idVar, labelVar string) (Lookup, int, error) {
	vars := res.Head.Vars
	if idVar == "" && labelVar == "" {
		if len(vars) < 2 {
			return nil, 0, fmt.Errorf("%w: lookup needs two variables, got %d", ErrShape, len(vars))
		}
		idVar, labelVar = vars[0], vars[1]
	}
	for _, name := range []string{idVar, labelVar} {
		if !contains(vars, name) {
			return nil, 0, fmt.Errorf("%w: variable %q is not selected by the query (have %v)", ErrShape, name, vars)
		}
	}

	lookup := make(Lookup, len(res.Results.Bindings))
	skipped := 0
	for _, b := range res.Results.Bindings {
		id, ok := b[idVar]
		if !ok {
			skipped++
			continue
		}
		label, ok := b[labelVar]
		if !ok {
			skipped++
			continue
		}
		lookup[label.Value] = IDSuffix(id.Value)
	}
	return lookup, skipped, nil
}

// LabelPair finds a "?x ?xLabel" pair among vars: the first variable ending
// in "Label" whose name without that suffix is also selected.
func LabelPair(vars []string) (idVar, labelVar string, ok bool) {
	for _, name := range vars {
		id := strings.TrimSuffix(name, "Label")
		if id != name && id != "" && contains(vars, id) {
			return id, name, true
		}
	}
	return "", "", false
}

// LabelLookup builds a Lookup from a "?x ?xLabel" style result, wherever
// the two variables appear in the selection.
func LabelLookup(res *sparql.Results) (Lookup, error) {
	idVar, labelVar, ok := LabelPair(res.Head.Vars)
	if !ok {
		return nil, fmt.Errorf("%w: no ?x ?xLabel pair in %v", ErrShape, res.Head.Vars)
	}
	return NewLookup(res, idVar, labelVar)
}

// IDSuffix returns the part of an entity URI after the last slash,
// eg. "Q42" for "https://www.wikidata.org/entity/Q42".
func IDSuffix(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
