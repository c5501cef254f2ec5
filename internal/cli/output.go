package cli

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
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"wikibase-connection/internal/claims"
	"wikibase-connection/internal/export"
	"wikibase-connection/internal/projector"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitNoResult     = 1 // The query produced no result (failed, malformed or empty)
	ExitCommandError = 2 // Command error (bad flags, config, shape mismatch, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitNoResult or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// errNoResult is what a command returns when Execute gave nothing back.
var errNoResult = NewExitError(ExitNoResult, "no result")

// OutputFormatter writes results as text, JSON or CSV.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`         // "ok"
	Data   interface{} `json:"data,omitempty"` // success payload
}

func (f *OutputFormatter) json(data interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResponse{Status: "ok", Data: data})
}

// Result writes one projected query result.
func (f *OutputFormatter) Result(res *projector.Result) error {
	if res == nil {
		return errNoResult
	}
	switch res.Mode {
	case projector.ModeRaw:
		body, err := res.Raw.Marshal()
		if err != nil {
			return err
		}
		if f.Format == "json" {
			return f.json(json.RawMessage(body))
		}
		_, err = fmt.Fprintln(f.Writer, string(body))
		return err
	case projector.ModeRecords:
		if f.Format == "json" {
			return f.json(res.Records)
		}
		return f.Table(recordsTable(res.Records))
	case projector.ModeTable:
		if f.Format == "json" {
			return f.json(res.Table.Records())
		}
		return f.Table(res.Table)
	case projector.ModeLookup:
		return f.Lookup(res.Lookup)
	}
	return fmt.Errorf("%w: %s", projector.ErrUnknownMode, res.Mode)
}

// Table writes t. Text output is column aligned; unbound cells are blank.
func (f *OutputFormatter) Table(t *projector.Table) error {
	switch f.Format {
	case "json":
		return f.json(t.Records())
	case "csv":
		return export.WriteCSV(f.Writer, t)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			cells[i] = ""
			if v != nil {
				cells[i] = *v
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// Lookup writes a label lookup sorted by label.
func (f *OutputFormatter) Lookup(l projector.Lookup) error {
	if f.Format == "json" {
		return f.json(l)
	}
	labels := make([]string, 0, len(l))
	for label := range l {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	if f.Format == "csv" {
		w := csv.NewWriter(f.Writer)
		w.Write([]string{"label", "id"})
		for _, label := range labels {
			w.Write([]string{label, l[label]})
		}
		w.Flush()
		return w.Error()
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	for _, label := range labels {
		fmt.Fprintf(tw, "%s\t%s\n", label, l[label])
	}
	return tw.Flush()
}

// Triples writes claims in long form, one triple per row.
func (f *OutputFormatter) Triples(triples []claims.Triple) error {
	if f.Format == "json" {
		return f.json(triples)
	}
	return f.Table(tripleTable(triples))
}

func recordsTable(records []projector.Record) *projector.Table {
	t := &projector.Table{}
	if len(records) == 0 {
		return t
	}
	for _, field := range records[0] {
		t.Columns = append(t.Columns, field.Name)
	}
	for _, rec := range records {
		row := make([]*string, len(rec))
		for i, field := range rec {
			row[i] = field.Value
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func tripleTable(triples []claims.Triple) *projector.Table {
	t := &projector.Table{
		Columns: []string{"entity_id", "property_id", "value"},
	}
	for _, tr := range triples {
		entity, property := tr.EntityID, tr.PropertyID
		var value *string
		if !tr.Value.IsNull() {
			s := tr.Value.String()
			value = &s
		}
		t.Rows = append(t.Rows, []*string{&entity, &property, value})
	}
	return t
}
