package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
	"github.com/intendproject/ingraph/pkg/things"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "ingraph.yml"

// Config represents the top-level ingraph.yml configuration
type Config struct {
	Version    string            `yaml:"version"`
	GraphDB    GraphDBConfig     `yaml:"graphdb"`
	Proxy      ProxyConfig       `yaml:"proxy,omitempty"`
	Repository RepositoryConfig  `yaml:"repository"`
	Context    map[string]string `yaml:"context,omitempty"` // Replaces the built-in JSON-LD context when set
	Things     ThingsConfig      `yaml:"things"`
	Server     ServerConfig      `yaml:"server"`
	Events     EventsConfig      `yaml:"events,omitempty"`
	Container  ContainerConfig   `yaml:"container"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// GraphDBConfig locates the GraphDB server
type GraphDBConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"password,omitempty"`
}

// ProxyConfig points the CLI at an ingraph-server facade instead of GraphDB
type ProxyConfig struct {
	URL string `yaml:"url,omitempty"`
}

// RepositoryConfig is the default upload target
type RepositoryConfig struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title,omitempty"`
	Ruleset string `yaml:"ruleset,omitempty"`
}

// ThingsConfig configures single-node replacement
type ThingsConfig struct {
	URL          string        `yaml:"url"`
	Namespace    string        `yaml:"namespace"`
	APIKey       string        `yaml:"api_key,omitempty"` // Prefer INGRAPH_THINGS_API_KEY
	Publisher    string        `yaml:"publisher,omitempty"`
	Datasource   string        `yaml:"datasource,omitempty"`
	ReplaceDelay time.Duration `yaml:"replace_delay"`
}

// ServerConfig configures ingraph-server
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	DefaultRepository string `yaml:"default_repository"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`
	PublicURL         string `yaml:"public_url,omitempty"` // used in /examples
}

// EventsConfig enables the Redis event stream
type EventsConfig struct {
	RedisURL  string `yaml:"redis_url,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// ContainerConfig describes the local GraphDB container
type ContainerConfig struct {
	Image string `yaml:"image"`
	Name  string `yaml:"name"`
	Port  int    `yaml:"port,omitempty"` // 0 picks a free port in 7200-7299
	Heap  string `yaml:"heap,omitempty"`
}

// LoggingConfig configures structured logs
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{Version: "1.0"}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.GraphDB.URL == "" {
		c.GraphDB.URL = "http://localhost:7200"
	}
	if c.GraphDB.Timeout == 0 {
		c.GraphDB.Timeout = 30 * time.Second
	}
	if c.GraphDB.HealthTimeout == 0 {
		c.GraphDB.HealthTimeout = 5 * time.Second
	}
	if c.Repository.ID == "" {
		c.Repository.ID = "GATE"
	}
	if c.Things.URL == "" {
		c.Things.URL = things.DefaultBaseURL
	}
	if c.Things.Namespace == "" {
		c.Things.Namespace = things.DefaultNamespace
	}
	if c.Things.ReplaceDelay == 0 {
		c.Things.ReplaceDelay = 10 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:5000"
	}
	if c.Server.DefaultRepository == "" {
		c.Server.DefaultRepository = "second-graph"
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 16 << 20
	}
	if c.Events.Namespace == "" {
		c.Events.Namespace = "default"
	}
	if c.Container.Image == "" {
		c.Container.Image = "ontotext/graphdb:10.6.3"
	}
	if c.Container.Name == "" {
		c.Container.Name = "ingraph-graphdb"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := validateHTTPURL("graphdb.url", c.GraphDB.URL); err != nil {
		return err
	}
	if c.GraphDB.Timeout < 0 || c.GraphDB.HealthTimeout < 0 {
		return fmt.Errorf("graphdb timeouts must be positive")
	}
	if c.Proxy.URL != "" {
		if err := validateHTTPURL("proxy.url", c.Proxy.URL); err != nil {
			return err
		}
	}

	if err := c.Descriptor().Validate(); err != nil {
		return fmt.Errorf("repository: %w", err)
	}

	if err := validateHTTPURL("things.url", c.Things.URL); err != nil {
		return err
	}
	if c.Things.ReplaceDelay < 0 {
		return fmt.Errorf("things.replace_delay must be >= 0, got %s", c.Things.ReplaceDelay)
	}

	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}

	if c.Container.Port != 0 && (c.Container.Port < 1 || c.Container.Port > 65535) {
		return fmt.Errorf("container.port out of range: %d", c.Container.Port)
	}

	for term, iri := range c.Context {
		if term == "" || iri == "" {
			return fmt.Errorf("context entries must have a non-empty term and value")
		}
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got: %s", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must have a host, got: %s", field, raw)
	}
	return nil
}

// Load reads and validates ingraph.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path, or returns the defaults if the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if err == nil {
		return config, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return nil, err
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment. Variables
// already set are not overridden. A missing file is an error only when
// required is set.
func LoadEnvFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Environment variables that override file values.
const (
	EnvGraphDBURL       = "GRAPHDB_BASE_URL"
	EnvGraphDBUsername  = "GRAPHDB_USERNAME"
	EnvGraphDBPassword  = "GRAPHDB_PASSWORD"
	EnvProxyURL         = "INGRAPH_PROXY_URL"
	EnvThingsAPIKey     = "INGRAPH_THINGS_API_KEY"
	EnvThingsPublisher  = "INGRAPH_THINGS_PUBLISHER"
	EnvThingsDatasource = "INGRAPH_THINGS_DATASOURCE"
	EnvEventsRedis      = "INGRAPH_EVENTS_REDIS"
	EnvServerAddr       = "INGRAPH_SERVER_ADDR"
	EnvLogLevel         = "INGRAPH_LOG_LEVEL"
)

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	overrides := map[string]*string{
		EnvGraphDBURL:       &c.GraphDB.URL,
		EnvGraphDBUsername:  &c.GraphDB.Username,
		EnvGraphDBPassword:  &c.GraphDB.Password,
		EnvProxyURL:         &c.Proxy.URL,
		EnvThingsAPIKey:     &c.Things.APIKey,
		EnvThingsPublisher:  &c.Things.Publisher,
		EnvThingsDatasource: &c.Things.Datasource,
		EnvEventsRedis:      &c.Events.RedisURL,
		EnvServerAddr:       &c.Server.Addr,
		EnvLogLevel:         &c.Logging.Level,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}
}

// Descriptor returns the configured upload target.
func (c *Config) Descriptor() graphstore.RepositoryDescriptor {
	return graphstore.RepositoryDescriptor{
		ID:      c.Repository.ID,
		Title:   c.Repository.Title,
		Ruleset: c.Repository.Ruleset,
	}.WithDefaults()
}

// GraphStore returns the GraphDB client settings.
func (c *Config) GraphStore() graphstore.Config {
	return graphstore.Config{
		BaseURL:  c.GraphDB.URL,
		Timeout:  c.GraphDB.Timeout,
		Username: c.GraphDB.Username,
		Password: c.GraphDB.Password,
	}
}

// ThingsClient returns the things API client settings.
func (c *Config) ThingsClient() things.Config {
	return things.Config{
		BaseURL:    c.Things.URL,
		Namespace:  c.Things.Namespace,
		APIKey:     c.Things.APIKey,
		Publisher:  c.Things.Publisher,
		Datasource: c.Things.Datasource,
		Timeout:    c.GraphDB.Timeout,
	}
}

// JSONLDContext returns the configured context, or the built-in one.
func (c *Config) JSONLDContext() jsonld.Context {
	if len(c.Context) == 0 {
		return jsonld.DefaultContext()
	}
	return jsonld.Context(c.Context).Clone()
}
