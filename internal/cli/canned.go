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

	"github.com/spf13/cobra"

	"wikibase-connection/internal/projector"
	"wikibase-connection/internal/wikibase"
)

type cannedQuery func(*wikibase.Connection, context.Context, projector.Mode) (*projector.Result, error)

// NewPropertiesCommand creates the properties command.
func NewPropertiesCommand(rootOpts *RootOptions) *cobra.Command {
	return newCannedCommand(rootOpts, "properties", "List properties (label -> PID)",
		projector.ModeLookup, (*wikibase.Connection).Properties)
}

// NewClassesCommand creates the classes command.
func NewClassesCommand(rootOpts *RootOptions) *cobra.Command {
	return newCannedCommand(rootOpts, "classes", "List the classification (label -> QID)",
		projector.ModeLookup, (*wikibase.Connection).Classification)
}

// NewDatasourcesCommand creates the datasources command.
func NewDatasourcesCommand(rootOpts *RootOptions) *cobra.Command {
	return newCannedCommand(rootOpts, "datasources", "List datasources with their query strings",
		projector.ModeTable, (*wikibase.Connection).Datasources)
}

func newCannedCommand(rootOpts *RootOptions, use, short string, mode projector.Mode, run cannedQuery) *cobra.Command {
	var modeName string
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := projector.ParseMode(modeName)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid mode", err)
			}
			conn, err := rootOpts.Connect()
			if err != nil {
				return err
			}
			res, err := run(conn, cmd.Context(), m)
			if err != nil {
				return WrapExitError(ExitCommandError, use+" failed", err)
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Result(res)
		},
	}
	cmd.Flags().StringVarP(&modeName, "mode", "m", string(mode), "output mode (raw|records|table|lookup)")
	return cmd
}

// NewItemCommand creates the item command.
func NewItemCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "item <label>",
		Short:         "Find items by label",
		Long:          `Find the items that carry <label>, in the configured language, as a property value. Prints the raw SPARQL JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rootOpts.Connect()
			if err != nil {
				return err
			}
			res, err := conn.ItemByLabel(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "item lookup failed", err)
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Result(res)
		},
	}
}
