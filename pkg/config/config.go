package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/edgeflare/fluentrest/pkg/notify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../pkg/config.Version=...".
var Version = "dev"

// EnvPrefix prefixes environment variables overriding config keys, eg
// FLUENTREST_DATABASE_CONNSTRING.
const EnvPrefix = "FLUENTREST"

// Config holds application-wide configuration
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	NATS      notify.NATSConfig `mapstructure:"nats"`
	Resources []ResourceConfig  `mapstructure:"resources"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	ListenAddr    string `mapstructure:"listenAddr"`
	BaseURI       string `mapstructure:"baseURI"`
	Version       string `mapstructure:"version"`
	VersionHeader string `mapstructure:"versionHeader"`
}

type DatabaseConfig struct {
	ConnString string `mapstructure:"connString"`
	// Pools maps additional pool names to connection strings. Resources
	// select one with pool.
	Pools map[string]string `mapstructure:"pools"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// ResourceConfig declares one table backed resource and its children.
type ResourceConfig struct {
	Name         string                    `mapstructure:"name"`
	Description  string                    `mapstructure:"description"`
	Table        string                    `mapstructure:"table"`
	Pool         string                    `mapstructure:"pool"`
	PrimaryKey   string                    `mapstructure:"primaryKey"`
	ForeignKey   string                    `mapstructure:"foreignKey"`
	PageSize     int                       `mapstructure:"pageSize"`
	Pagination   *bool                     `mapstructure:"pagination"`
	Disable      []string                  `mapstructure:"disable"`
	NamedQueries map[string]map[string]any `mapstructure:"namedQueries"`
	Constraints  []ConstraintConfig        `mapstructure:"constraints"`
	FullText     *FullTextConfig           `mapstructure:"fullText"`
	Reserved     []string                  `mapstructure:"reserved"`
	Children     []ResourceConfig          `mapstructure:"children"`
}

type ConstraintConfig struct {
	Name    string `mapstructure:"name"`
	Status  int    `mapstructure:"status"`
	Message string `mapstructure:"message"`
}

type FullTextConfig struct {
	Entity string `mapstructure:"entity"`
	Field  string `mapstructure:"field"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listenAddr", ":8080")
	v.SetDefault("server.baseURI", "/api")
	v.SetDefault("server.version", "")
	v.SetDefault("server.versionHeader", "")
	v.SetDefault("database.connString", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9100")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("nats.servers", []string{})
	v.SetDefault("nats.subjectPrefix", "")
	v.SetDefault("nats.stream", "")
	v.SetDefault("nats.username", "")
	v.SetDefault("nats.password", "")
}

// Load reads config from file, environment and flags, in increasing order of
// precedence. Flags are bound by name, eg --server.listenAddr.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("fluentrest")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the resource tree.
func (c *Config) Validate() error {
	return validateResources("", c.Resources)
}

func validateResources(parent string, resources []ResourceConfig) error {
	seen := make(map[string]bool, len(resources))
	for _, rc := range resources {
		path := parent + "/" + rc.Name
		if rc.Name == "" {
			return fmt.Errorf("resource under %q: name is required", parent+"/")
		}
		if seen[rc.Name] {
			return fmt.Errorf("resource %q: duplicate name", path)
		}
		seen[rc.Name] = true

		for _, verb := range rc.Disable {
			if _, ok := verbs[strings.ToUpper(verb)]; !ok {
				return fmt.Errorf("resource %q: unknown verb %q", path, verb)
			}
		}
		for _, c := range rc.Constraints {
			if c.Name == "" {
				return fmt.Errorf("resource %q: constraint name is required", path)
			}
			if c.Status != 0 && http.StatusText(c.Status) == "" {
				return fmt.Errorf("resource %q: constraint %q: invalid status %d", path, c.Name, c.Status)
			}
		}
		if rc.FullText != nil && rc.FullText.Entity == "" {
			return fmt.Errorf("resource %q: fullText.entity is required", path)
		}
		if err := validateResources(path, rc.Children); err != nil {
			return err
		}
	}
	return nil
}
