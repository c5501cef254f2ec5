package export

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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"wikibase-connection/internal/projector"
)

// WriteCSV writes t as CSV with a header row. Unbound values are written
// as empty fields.
func WriteCSV(w io.Writer, t *projector.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			if v == nil {
				record[i] = ""
			} else {
				record[i] = *v
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes t to path. Paths ending in ".zst" are compressed
// with zstd.
func WriteCSVFile(path string, t *projector.Table) error {
	outFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if !strings.HasSuffix(path, ".zst") {
		if err := WriteCSV(outFile, t); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return outFile.Close()
	}

	zstdLevel := zstd.WithEncoderLevel(zstd.SpeedBestCompression)
	writer, err := zstd.NewWriter(outFile, zstdLevel)
	if err != nil {
		return err
	}
	if err := WriteCSV(writer, t); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return outFile.Close()
}

// ContentType returns the MIME type of a file written by WriteCSVFile.
func ContentType(path string) string {
	if strings.HasSuffix(path, ".zst") {
		return "application/zstd"
	}
	return "text/csv"
}
