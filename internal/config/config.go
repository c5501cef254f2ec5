// Package config holds the connection settings for a Wikibase instance.
//
// Settings come from the process environment and can be overridden by a
// YAML file. A Config is a plain
// value: build it once, then hand copies to whatever needs it.
package config

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
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvSPARQLEndpoint  = "SPARQL_ENDPOINT_URL"
	EnvWikibaseURL     = "WIKIBASE_URL"
	EnvMediaWikiAPIURL = "MEDIAWIKI_API_URL"
	EnvBotName         = "BOT_NAME"
)

// ErrMissingEnvironment is returned by FromEnv when SPARQL_ENDPOINT_URL is unset.
var ErrMissingEnvironment = errors.New("environment does not appear to contain required variables to run this code")

// Config describes one Wikibase instance and how to talk to it.
type Config struct {
	// SPARQLEndpoint is the query service URL, eg. https://example.wikibase.cloud/query/sparql
	SPARQLEndpoint string `yaml:"sparql_endpoint"`

	// WikibaseURL is the base URL of the wiki, with a trailing slash.
	WikibaseURL string `yaml:"wikibase_url"`

	// MediaWikiAPIURL points to api.php. Derived from WikibaseURL when empty.
	MediaWikiAPIURL string `yaml:"mediawiki_api_url"`

	// BotName goes into the User-Agent header.
	BotName string `yaml:"bot_name"`

	// Language for rdfs:label literals and the label service.
	Language string `yaml:"language"`

	// Timeout bounds a single HTTP round trip. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of extra attempts after a failed SPARQL request.
	Retries int `yaml:"retries"`

	// Concurrency is the number of wbgetclaims calls in flight. Zero or one
	// fetches sequentially.
	Concurrency int `yaml:"concurrency"`

	// Schema holds the instance specific property and item numbering.
	Schema Schema `yaml:"schema"`
}

// Schema names the properties and classes that the canned queries rely on.
// These differ from one Wikibase instance to the next.
type Schema struct {
	InstanceOf   string `yaml:"instance_of"`
	SubclassOf   string `yaml:"subclass_of"`
	DatasetClass string `yaml:"dataset_class"`
	QueryString  string `yaml:"query_string"`
}

// Default returns a Config with everything but the URLs filled in.
func Default() Config {
	return Config{
		Language:    "en",
		Concurrency: 1,
		Schema: Schema{
			InstanceOf:   "P1",
			SubclassOf:   "P2",
			DatasetClass: "Q11",
			QueryString:  "P29",
		},
	}
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Lookup(os.LookupEnv)
}

// Lookup builds a Config from an environment lookup function.
func Lookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	endpoint, ok := lookup(EnvSPARQLEndpoint)
	if !ok || endpoint == "" {
		return c, ErrMissingEnvironment
	}
	c.SPARQLEndpoint = endpoint
	c.WikibaseURL, _ = lookup(EnvWikibaseURL)
	c.MediaWikiAPIURL, _ = lookup(EnvMediaWikiAPIURL)
	c.BotName, _ = lookup(EnvBotName)
	return c, nil
}

// LoadFile overlays the YAML file at path on top of base. Fields missing
// from the file keep their value from base; unknown fields are an error.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	c := base
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return c, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if err := checkURL("sparql_endpoint", c.SPARQLEndpoint); err != nil {
		return err
	}
	if c.WikibaseURL != "" {
		if err := checkURL("wikibase_url", c.WikibaseURL); err != nil {
			return err
		}
		if !strings.HasSuffix(c.WikibaseURL, "/") {
			return fmt.Errorf("wikibase_url %q must end with a slash", c.WikibaseURL)
		}
	}
	if c.MediaWikiAPIURL != "" {
		if err := checkURL("mediawiki_api_url", c.MediaWikiAPIURL); err != nil {
			return err
		}
	}
	if _, err := language.Parse(c.Language); err != nil {
		return fmt.Errorf("invalid language %q: %w", c.Language, err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// UserAgent is sent with every request, eg. "edjibot/1.0 (https://edji-knows.wikibase.cloud/)".
func (c Config) UserAgent() string {
	name := c.BotName
	if name == "" {
		name = "wbconn"
	}
	if c.WikibaseURL == "" {
		return name + "/1.0"
	}
	return fmt.Sprintf("%s/1.0 (%s)", name, c.WikibaseURL)
}

// APIURL returns the MediaWiki api.php URL.
func (c Config) APIURL() string {
	if c.MediaWikiAPIURL != "" {
		return c.MediaWikiAPIURL
	}
	if c.WikibaseURL == "" {
		return ""
	}
	return c.WikibaseURL + "w/api.php"
}

func checkURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", field, raw)
	}
	return nil
}
