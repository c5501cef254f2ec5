// Package cli implements the wbconn command tree.
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
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"wikibase-connection/internal/config"
	"wikibase-connection/internal/export"
	"wikibase-connection/internal/wikibase"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "text" | "json" | "csv"
	ConfigPath  string
	MetricsFile string

	Logger   *slog.Logger
	Registry *prometheus.Registry

	// extra options for every Connection; tests use this to swap the API.
	connOptions []wikibase.Option

	// s3 replaces the object storage client built from --s3-key.
	s3 export.S3
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "csv"}

// NewRootCommand creates the root command for the wbconn CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wbconn",
		Short: "wbconn - query a Wikibase instance",
		Long: `Run SPARQL queries against a Wikibase query service and reshape the results
into tables and label lookups, fetch claims through the MediaWiki API, and
export the results.

Connection settings come from SPARQL_ENDPOINT_URL, WIKIBASE_URL,
MEDIAWIKI_API_URL and BOT_NAME, optionally overridden by a YAML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if opts.MetricsFile != "" {
				opts.Registry = prometheus.NewRegistry()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Registry == nil {
				return nil
			}
			if err := prometheus.WriteToTextfile(opts.MetricsFile, opts.Registry); err != nil {
				return WrapExitError(ExitCommandError, "failed to write metrics", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|csv)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file overriding the environment")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write query metrics to this file in Prometheus text format")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewItemCommand(opts))
	cmd.AddCommand(NewPropertiesCommand(opts))
	cmd.AddCommand(NewClassesCommand(opts))
	cmd.AddCommand(NewDatasourcesCommand(opts))
	cmd.AddCommand(NewClaimsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// LoadConfig reads the environment and overlays the config file, if any.
func (o *RootOptions) LoadConfig() (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		if !errors.Is(err, config.ErrMissingEnvironment) || o.ConfigPath == "" {
			return cfg, err
		}
	}
	if o.ConfigPath != "" {
		return config.LoadFile(o.ConfigPath, cfg)
	}
	return cfg, nil
}

// Connect builds a Connection from the loaded configuration.
func (o *RootOptions) Connect() (*wikibase.Connection, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := wikibase.New(cfg, append([]wikibase.Option{
		wikibase.WithLogger(logger),
		wikibase.WithRegisterer(o.registerer()),
	}, o.connOptions...)...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect", err)
	}
	return conn, nil
}

func (o *RootOptions) registerer() prometheus.Registerer {
	if o.Registry == nil {
		return nil
	}
	return o.Registry
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
