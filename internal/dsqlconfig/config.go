// Package dsqlconfig validates storage-core configuration and resolves the
// Aurora DSQL region a cluster endpoint belongs to.
package dsqlconfig

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// regionPattern extracts the region segment from a DSQL cluster endpoint
// of the form "<cluster-id>.dsql.<region>.on.aws".
var regionPattern = regexp.MustCompile(`\.dsql\.([a-z0-9-]+)\.on\.aws$`)

// Config is the plain configuration shape accepted when the caller does
// not hand the core an already-built client or pool.
type Config struct {
	ID                 string `toml:"id"`
	Host               string `toml:"host"`
	User               string `toml:"user"`
	Database           string `toml:"database"`
	Region             string `toml:"region"`
	SchemaName         string `toml:"schema_name"`
	MaxConns           int32  `toml:"max_conns"`
	MinConns           int32  `toml:"min_conns"`
	MaxIdleMs          int    `toml:"max_idle_ms"`
	MaxLifetimeSeconds int    `toml:"max_lifetime_seconds"`
	ConnectTimeoutMs   int    `toml:"connect_timeout_ms"`
	AllowExitOnIdle    bool   `toml:"allow_exit_on_idle"`
}

// maxLifetimeCeilingSeconds is DSQL's hard connection-lifetime wall. Configured
// lifetimes must stay strictly below it.
const maxLifetimeCeilingSeconds = 3600

// Default returns pool defaults tuned to leave a five-minute margin before
// DSQL force-closes long-lived connections.
func Default() *Config {
	return &Config{
		SchemaName:         "public",
		MaxConns:           10,
		MinConns:           0,
		MaxIdleMs:          600000,
		MaxLifetimeSeconds: 3300,
		ConnectTimeoutMs:   5000,
		AllowExitOnIdle:    true,
	}
}

// Load reads configuration with priority: defaults -> TOML file (if
// configPath is non-empty; a file that cannot be read is an error) ->
// environment variables. It does not validate the result; callers apply
// any further overrides and then call Validate.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("dsqlconfig: reading %s: %w", configPath, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("dsqlconfig: parsing %s: %w", configPath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envInt(name string, dest *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("dsqlconfig: invalid value for %s: %q is not an integer", name, v)
	}
	*dest = n
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DSQL_ID"); v != "" {
		cfg.ID = v
	}
	if v := os.Getenv("DSQL_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("DSQL_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("DSQL_DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("DSQL_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("DSQL_SCHEMA_NAME"); v != "" {
		cfg.SchemaName = v
	}
	if err := envInt("DSQL_MAX_LIFETIME_SECONDS", &cfg.MaxLifetimeSeconds); err != nil {
		return err
	}
	if err := envInt("DSQL_CONNECT_TIMEOUT_MS", &cfg.ConnectTimeoutMs); err != nil {
		return err
	}
	return nil
}

// Validate checks id/host non-emptiness, the connection-lifetime ceiling,
// and that a region can be resolved. On success it normalizes cfg.Region
// to the resolved value.
func (c *Config) Validate() error {
	id := strings.TrimSpace(c.ID)
	if id == "" {
		return fmt.Errorf("dsqlconfig: id must not be empty")
	}
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return fmt.Errorf("dsqlconfig: host must not be empty")
	}
	if c.MaxLifetimeSeconds != 0 && c.MaxLifetimeSeconds >= maxLifetimeCeilingSeconds {
		return fmt.Errorf("dsqlconfig: max_lifetime_seconds must be strictly less than %d, got %d", maxLifetimeCeilingSeconds, c.MaxLifetimeSeconds)
	}

	region, err := ResolveRegion(host, c.Region)
	if err != nil {
		return err
	}
	c.Region = region
	return nil
}

// ResolveRegion returns explicit if non-empty; otherwise it extracts the
// region from a DSQL endpoint host. Returns an error if neither yields a
// region.
func ResolveRegion(host, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	m := regionPattern.FindStringSubmatch(host)
	if m == nil {
		return "", fmt.Errorf("dsqlconfig: cannot resolve region from host %q; supply one explicitly", host)
	}
	return m[1], nil
}
