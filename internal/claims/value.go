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

	"github.com/valyala/fastjson"
)

// Kind tags the shape a claim value was resolved to.
type Kind int

const (
	KindNone Kind = iota
	KindEntity
	KindCoordinate
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindCoordinate:
		return "coordinate"
	case KindScalar:
		return "scalar"
	}
	return "none"
}

// Value is a claim's datavalue reduced to one scalar.
type Value struct {
	Kind Kind

	// ID is set for KindEntity.
	ID string

	// Latitude and Longitude are set for KindCoordinate.
	Latitude, Longitude float64

	// Text is the flattened value: the ID, "<lat>,<lon>", or the scalar.
	Text string
}

func (v Value) String() string {
	return v.Text
}

// IsNull reports whether the claim carried no value (novalue/somevalue snaks).
func (v Value) IsNull() bool {
	return v.Kind == KindNone
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNull() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Text)
}

// FlattenField flattens the field of obj, eg. FlattenField(datavalue, "value").
func FlattenField(obj *fastjson.Value, field string) Value {
	if obj == nil {
		return Value{}
	}
	return FlattenValue(obj.Get(field))
}

// FlattenValue resolves the polymorphic value of a Wikibase datavalue.
// The first rule that matches wins:
//
//  1. a non-null "id" field: the entity identifier;
//  2. non-null "latitude" and "longitude": "<lat>,<lon>";
//  3. otherwise the first field of the object, in document order.
//
// A value that is not an object is its own first field.
func FlattenValue(v *fastjson.Value) Value {
	if isNull(v) {
		return Value{}
	}
	if v.Type() != fastjson.TypeObject {
		return Value{Kind: KindScalar, Text: text(v)}
	}

	if id := v.Get("id"); !isNull(id) {
		s := text(id)
		return Value{Kind: KindEntity, ID: s, Text: s}
	}

	lat, lon := v.Get("latitude"), v.Get("longitude")
	if !isNull(lat) && !isNull(lon) {
		c := Value{Kind: KindCoordinate, Text: text(lat) + "," + text(lon)}
		c.Latitude, _ = lat.Float64()
		c.Longitude, _ = lon.Float64()
		return c
	}

	obj, _ := v.Object()
	var first *fastjson.Value
	obj.Visit(func(_ []byte, fv *fastjson.Value) {
		if first == nil {
			first = fv
		}
	})
	if isNull(first) {
		return Value{}
	}
	return Value{Kind: KindScalar, Text: text(first)}
}

func isNull(v *fastjson.Value) bool {
	return v == nil || v.Type() == fastjson.TypeNull
}

// text renders a JSON value the way it reads in the document: strings
// unquoted, numbers with their original digits, anything else as JSON.
func text(v *fastjson.Value) string {
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return string(v.MarshalTo(nil))
}
