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
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wikibase-connection/internal/export"
	"wikibase-connection/internal/projector"
	"wikibase-connection/internal/wikibase"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	*RootOptions
	Out    string
	SQLite string
	Table  string
	Bucket string
	S3Key  string
	Dest   string
}

// ExportSources lists what the export command can write.
var ExportSources = []string{"datasources", "datasource-claims", "properties", "classes"}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <source>",
		Short: "Export a table to CSV, SQLite or object storage",
		Long: fmt.Sprintf(`Export one of %v.

--out writes CSV, compressed with zstd when the name ends in .zst. --sqlite
writes the table into a SQLite database. --bucket uploads the --out file to
S3-compatible storage using the JSON key file given with --s3-key.`, ExportSources),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "CSV output file (.zst for zstd)")
	cmd.Flags().StringVar(&opts.SQLite, "sqlite", "", "SQLite database file")
	cmd.Flags().StringVar(&opts.Table, "table", "", "SQLite table name (default: the source name)")
	cmd.Flags().StringVar(&opts.Bucket, "bucket", "", "upload --out to this bucket")
	cmd.Flags().StringVar(&opts.S3Key, "s3-key", "", "JSON file with Endpoint, Key and Secret")
	cmd.Flags().StringVar(&opts.Dest, "dest", "", "object name in the bucket (default: base name of --out)")

	return cmd
}

func runExport(opts *ExportOptions, source string, cmd *cobra.Command) error {
	if opts.Out == "" && opts.SQLite == "" {
		return NewExitError(ExitCommandError, "nothing to do: give --out or --sqlite")
	}
	if opts.Bucket != "" && opts.Out == "" {
		return NewExitError(ExitCommandError, "--bucket uploads the --out file; give --out")
	}
	if opts.Bucket != "" && opts.s3 == nil && opts.S3Key == "" {
		return NewExitError(ExitCommandError, "--bucket needs --s3-key")
	}

	conn, err := opts.Connect()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	table, err := exportTable(ctx, conn, source)
	if err != nil {
		return err
	}
	if table == nil {
		return errNoResult
	}
	opts.Logger.Info("exporting", "source", source, "rows", table.Len())

	if opts.Out != "" {
		if err := export.WriteCSVFile(opts.Out, table); err != nil {
			return WrapExitError(ExitCommandError, "CSV export failed", err)
		}
	}
	if opts.SQLite != "" {
		name := opts.Table
		if name == "" {
			name = strings.ReplaceAll(source, "-", "_")
		}
		if err := export.WriteSQLite(ctx, opts.SQLite, name, table); err != nil {
			return WrapExitError(ExitCommandError, "SQLite export failed", err)
		}
	}
	if opts.Bucket != "" {
		s3 := opts.s3
		if s3 == nil {
			client, err := export.NewS3(opts.S3Key)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to set up object storage", err)
			}
			s3 = client
		}
		if err := export.Upload(ctx, s3, opts.Bucket, opts.Dest, opts.Out); err != nil {
			return WrapExitError(ExitCommandError, "upload failed", err)
		}
	}
	return nil
}

func exportTable(ctx context.Context, conn *wikibase.Connection, source string) (*projector.Table, error) {
	var (
		res *projector.Result
		err error
	)
	switch source {
	case "datasource-claims":
		table, err := conn.DatasourceClaims(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to fetch datasource claims", err)
		}
		return table, nil
	case "datasources":
		res, err = conn.Datasources(ctx, projector.ModeTable)
	case "properties":
		res, err = conn.Properties(ctx, projector.ModeTable)
	case "classes":
		res, err = conn.Classification(ctx, projector.ModeTable)
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown source %q: must be one of %v", source, ExportSources))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "query failed", err)
	}
	if res == nil {
		return nil, nil
	}
	return res.Table, nil
}
