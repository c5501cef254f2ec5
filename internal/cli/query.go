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
	"io"
	"strings"

	"github.com/spf13/cobra"

	"wikibase-connection/internal/projector"
	"wikibase-connection/internal/wikibase"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	*RootOptions
	Mode     string
	Endpoint string
	IDVar    string
	LabelVar string
	URL      string
	URLParam string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [sparql|-]",
		Short: "Run a SPARQL query and project the results",
		Long: `Run a SPARQL query against the configured endpoint, or --endpoint, and
print the results as a raw document, records, a table or a label lookup.

The query is the argument, standard input when the argument is "-", or the
query parameter of a query service link given with --url.

Without --id-var and --label-var, lookup mode pairs ?x with ?xLabel when the
query selects both, and uses the first two variables otherwise.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", string(projector.ModeTable), "output mode (raw|records|table|lookup)")
	cmd.Flags().StringVarP(&opts.Endpoint, "endpoint", "e", "", "SPARQL endpoint (default: the configured one)")
	cmd.Flags().StringVar(&opts.IDVar, "id-var", "", "identifier variable for lookup mode (default: first variable)")
	cmd.Flags().StringVar(&opts.LabelVar, "label-var", "", "label variable for lookup mode (default: second variable)")
	cmd.Flags().StringVar(&opts.URL, "url", "", "query service link holding the query")
	cmd.Flags().StringVar(&opts.URLParam, "url-param", "query", "parameter of --url that holds the query")

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	mode, err := projector.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mode", err)
	}

	req := projector.Request{
		Endpoint:   opts.Endpoint,
		Mode:       mode,
		IDVar:      opts.IDVar,
		LabelVar:   opts.LabelVar,
		PairLabels: true,
	}
	switch {
	case opts.URL != "" && len(args) > 0:
		return NewExitError(ExitCommandError, "give either a query or --url, not both")
	case opts.URL != "":
		endpoint, query, err := wikibase.ParseSPARQLURL(opts.URL, opts.URLParam)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --url", err)
		}
		req.Query = query
		if req.Endpoint == "" {
			req.Endpoint = endpoint
		}
	case len(args) == 0:
		return NewExitError(ExitCommandError, "no query given")
	case args[0] == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read query", err)
		}
		req.Query = string(data)
	default:
		req.Query = args[0]
	}
	if strings.TrimSpace(req.Query) == "" {
		return NewExitError(ExitCommandError, "query is empty")
	}

	conn, err := opts.Connect()
	if err != nil {
		return err
	}
	res, err := conn.Execute(cmd.Context(), req)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Result(res)
}
