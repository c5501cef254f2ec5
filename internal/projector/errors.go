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
	"errors"
	"fmt"
)

// FailureKind says why a query produced no result.
type FailureKind string

const (
	// FailureTransport: the request could not be sent or the body not read.
	FailureTransport FailureKind = "transport"

	// FailureStatus: the endpoint answered with a non-200 status.
	FailureStatus FailureKind = "status"

	// FailureDecode: the body is not a SPARQL JSON results document.
	FailureDecode FailureKind = "decode"

	// FailureEmpty: the query succeeded but matched nothing.
	FailureEmpty FailureKind = "empty"
)

// QueryError is returned by Fetch. Execute turns it into an absent result.
type QueryError struct {
	Kind     FailureKind
	Endpoint string

	// Status is the HTTP status code for FailureStatus, zero otherwise.
	Status int

	Err error
}

func (e *QueryError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("sparql %s failure at %s: HTTP %d", e.Kind, e.Endpoint, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("sparql %s failure at %s: %v", e.Kind, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("sparql %s failure at %s", e.Kind, e.Endpoint)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// KindOf extracts the FailureKind from an error returned by Fetch.
func KindOf(err error) (FailureKind, bool) {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return qerr.Kind, true
	}
	return "", false
}

var (
	// ErrShape means the result does not have the columns a projection needs.
	ErrShape = errors.New("result shape does not fit projection")

	// ErrUnknownMode is returned for an output mode Execute cannot produce.
	ErrUnknownMode = errors.New("unknown output mode")
)
