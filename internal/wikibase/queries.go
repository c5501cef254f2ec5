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
	"bytes"
	"fmt"
	"strings"

	"github.com/knakk/rdf"
	"github.com/knakk/sparql"
)

// The canned queries. Each starts at a "# tag:" line and must not contain
// blank lines or comments of its own.
const queries = `
# Finds items carrying the literal as any property value, usually rdfs:label.
# tag: item-by-label
SELECT ?item
WHERE {
    ?item ?label {{.Label}} .
}

# Every property with its datatype.
# tag: properties
{{.Namespaces}}
SELECT ?property ?propertyLabel ?property_type WHERE {
    ?property a wikibase:Property .
    ?property wikibase:propertyType ?property_type .
    SERVICE wikibase:label { bd:serviceParam wikibase:language "{{.Language}}" . }
}

# Items that are a subclass of something, ie. the classification.
# tag: classification
{{.Namespaces}}
SELECT ?item ?itemLabel
WHERE {
    ?item wdt:{{.SubclassOf}} ?subclass .
    SERVICE wikibase:label { bd:serviceParam wikibase:language "{{.Language}}" . }
}

# Instances of the dataset class, with their query string when present.
# tag: datasources
{{.Namespaces}}
SELECT ?ds ?dsLabel ?query_string
WHERE {
    ?ds wdt:{{.InstanceOf}} wd:{{.DatasetClass}} .
    OPTIONAL { ?ds wdt:{{.QueryString}} ?query_string . }
    SERVICE wikibase:label { bd:serviceParam wikibase:language "{{.Language}}" . }
}
`

var queryBank = sparql.LoadBank(bytes.NewBufferString(queries))

// queryParams is the data the canned query templates are executed with.
type queryParams struct {
	Namespaces   string
	Language     string
	Label        string
	InstanceOf   string
	SubclassOf   string
	DatasetClass string
	QueryString  string
}

func (c *Connection) prepare(tag string, p queryParams) (string, error) {
	q, err := queryBank.Prepare(tag, p)
	if err != nil {
		return "", fmt.Errorf("failed to prepare %s query: %w", tag, err)
	}
	return q, nil
}

// Namespaces returns the wd: and wdt: PREFIX declarations for this
// instance's entity and direct-property IRIs.
func (c *Connection) Namespaces() (string, error) {
	if c.cfg.WikibaseURL == "" {
		return "", fmt.Errorf("wikibase_url is not configured")
	}
	var b strings.Builder
	for _, ns := range []struct{ prefix, path string }{
		{"wd", "entity/"},
		{"wdt", "prop/direct/"},
	} {
		iri, err := rdf.NewIRI(c.cfg.WikibaseURL + ns.path)
		if err != nil {
			return "", fmt.Errorf("invalid %s namespace: %w", ns.prefix, err)
		}
		fmt.Fprintf(&b, "PREFIX %s: %s\n", ns.prefix, iri.Serialize(rdf.NTriples))
	}
	return b.String(), nil
}

// labelLiteral renders label as a SPARQL language-tagged literal.
func (c *Connection) labelLiteral(label string) (string, error) {
	lit, err := rdf.NewLangLiteral(label, c.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("invalid label %q: %w", label, err)
	}
	return lit.Serialize(rdf.NTriples), nil
}
