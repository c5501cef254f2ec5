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
	"github.com/spf13/cobra"

	"wikibase-connection/internal/claims"
	"wikibase-connection/internal/projector"
)

// ClaimsOptions holds options for the claims command.
type ClaimsOptions struct {
	*RootOptions
	Wide bool
}

// NewClaimsCommand creates the claims command.
func NewClaimsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClaimsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "claims <id>...",
		Short: "Fetch entity claims as (entity, property, value) triples",
		Long: `Fetch the claims of each distinct entity through wbgetclaims and flatten
them into triples. With --wide, pivot into one row per entity and one column
per property, headed by the property label.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.Connect()
			if err != nil {
				return err
			}
			triples, err := conn.PropertyClaims(cmd.Context(), args)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to fetch claims", err)
			}
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if !opts.Wide {
				return formatter.Triples(triples)
			}

			var labels map[string]string
			props, err := conn.Properties(cmd.Context(), projector.ModeLookup)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to fetch property labels", err)
			}
			if props != nil {
				labels = claims.Invert(props.Lookup)
			}
			return formatter.Table(claims.Wide(triples, labels))
		},
	}
	cmd.Flags().BoolVar(&opts.Wide, "wide", false, "one row per entity, one column per property")
	return cmd
}
