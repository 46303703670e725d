package profile

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"sigs.k8s.io/yaml"
)

// ErrNoConfig is returned by Discover when no configuration file exists in
// any probed location.
var ErrNoConfig = errors.New("no configuration file found")

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(raw)
}

// Parse decodes configuration bytes. ${VAR} references are expanded from
// the environment first; unset variables expand to the empty string.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnv(raw), &cfg); err != nil {
		return nil, err
	}

	if cfg.Binary == "" {
		cfg.Binary = "restic"
	}
	for name, p := range cfg.Profiles {
		if p != nil {
			p.Name = name
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to path, readable only by the owner since
// profiles can embed passwords.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// DefaultPaths lists where configuration is probed, in order: the working
// directory, the user configuration directory, then the system one.
func DefaultPaths() []string {
	paths := []string{"restix.yaml", "restix.yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "restix", "restix.yaml"),
			filepath.Join(dir, "restix", "restix.yml"))
	}
	paths = append(paths, "/etc/restix/restix.yaml", "/etc/restix/restix.yml")

	return paths
}

// Discover loads the first configuration found: the RESTIX_CONFIG path when
// set, otherwise the default locations. It returns the path it used.
func Discover() (*Config, string, error) {
	if path := os.Getenv("RESTIX_CONFIG"); path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	for _, path := range DefaultPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		return cfg, path, err
	}

	return nil, "", ErrNoConfig
}

func expandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envRef.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}
