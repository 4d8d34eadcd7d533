package duckdb

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/dbview/pkg/core"
)

// Params holds DuckDB session setup decoded from core.OpenConfig.Params.
type Params struct {
	// Extensions to install and load before browsing (e.g. "httpfs", "json").
	Extensions []string `mapstructure:"extensions"`

	// Secrets give the session access to remote storage.
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings are applied with SET (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret.
type SecretConfig struct {
	// Type: "s3", "gcs", "azure", "r2", "huggingface"
	Type string `mapstructure:"type"`
	// Provider: "config", "credential_chain", ...
	Provider string `mapstructure:"provider"`
	Region   string `mapstructure:"region"`
	// Scope limits the secret to a path prefix.
	Scope    string `mapstructure:"scope"`
	KeyID    string `mapstructure:"key_id"`
	Secret   string `mapstructure:"secret"`
	Endpoint string `mapstructure:"endpoint"`
	// URLStyle: "vhost" or "path"
	URLStyle string `mapstructure:"url_style"`
	UseSSL   *bool  `mapstructure:"use_ssl"`
}

var settingName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseParams decodes raw params. Unknown keys are rejected so typos in the
// config file surface instead of being ignored.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, core.NewInvalidArgumentError("invalid duckdb params: %v", err)
	}
	return p, p.validate()
}

func (p *Params) validate() error {
	for _, ext := range p.Extensions {
		if !settingName.MatchString(ext) {
			return core.NewInvalidArgumentError("invalid duckdb extension name %q", ext)
		}
	}
	for key := range p.Settings {
		if !settingName.MatchString(key) {
			return core.NewInvalidArgumentError("invalid duckdb setting name %q", key)
		}
	}
	for i, s := range p.Secrets {
		if !settingName.MatchString(s.Type) {
			return core.NewInvalidArgumentError("secret %d: invalid type %q", i, s.Type)
		}
		if s.Provider != "" && !settingName.MatchString(s.Provider) {
			return core.NewInvalidArgumentError("secret %d: invalid provider %q", i, s.Provider)
		}
	}
	return nil
}

// statements renders the session setup in execution order: extensions,
// secrets, then settings sorted by name.
func (p *Params) statements() []string {
	var stmts []string
	for _, ext := range p.Extensions {
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}
	for i, s := range p.Secrets {
		stmts = append(stmts, buildCreateSecretSQL(fmt.Sprintf("dbview_secret_%d", i), s))
	}

	keys := make([]string, 0, len(p.Settings))
	for key := range p.Settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", key, quoteLiteral(p.Settings[key])))
	}
	return stmts
}

func buildCreateSecretSQL(name string, s SecretConfig) string {
	parts := []string{"TYPE " + s.Type}
	if s.Provider != "" {
		parts = append(parts, "PROVIDER "+s.Provider)
	}
	literal := func(key, value string) {
		if value != "" {
			parts = append(parts, key+" "+quoteLiteral(value))
		}
	}
	literal("KEY_ID", s.KeyID)
	literal("SECRET", s.Secret)
	literal("REGION", s.Region)
	literal("ENDPOINT", s.Endpoint)
	literal("URL_STYLE", s.URLStyle)
	literal("SCOPE", s.Scope)
	if s.UseSSL != nil {
		parts = append(parts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}
	return fmt.Sprintf("CREATE OR REPLACE SECRET %s (%s)", name, strings.Join(parts, ", "))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
