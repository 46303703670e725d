// Package profile holds the user-facing configuration: which repositories
// exist, what goes into them, and how runs should behave. Profiles are
// declarative; translating one into an argument vector happens through a
// command builder.
package profile

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/napalu/restix"
	"github.com/napalu/restix/log"
	"github.com/napalu/restix/parse"
	"github.com/napalu/restix/restic"
	"github.com/napalu/restix/retention"
)

var (
	// ErrProfileNotFound is returned when a named profile is not configured.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNoRetention is returned when a forget run is requested for a
	// profile without a retention policy.
	ErrNoRetention = errors.New("profile has no retention policy")
)

// Config is the top-level configuration file.
type Config struct {
	// Binary is the backup tool executable, "restic" unless overridden.
	Binary string     `json:"binary,omitempty"`
	Log    log.Config `json:"log"`
	// History is the run database path; empty keeps no history.
	History string `json:"history,omitempty"`
	// Secrets is the encrypted secret store path, consulted when a profile
	// uses a "secret:<name>" password source.
	Secrets string `json:"secrets,omitempty"`
	// NotifyCommand is a shell-style command line invoked for every run
	// event, with the event exposed through RESTIX_EVENT_* variables.
	NotifyCommand string              `json:"notifyCommand,omitempty"`
	Profiles      map[string]*Profile `json:"profiles"`
}

// Profile describes one repository and what to back up into it.
type Profile struct {
	Name       string `json:"-"`
	Repository string `json:"repository"`
	// PasswordSource is the repository password: a literal value, or one
	// of "file:<path>", "env:<VAR>", "secret:<name>".
	PasswordSource string            `json:"password,omitempty"`
	Sources        []string          `json:"sources,omitempty"`
	Excludes       []string          `json:"excludes,omitempty"`
	ExcludeCaches  bool              `json:"excludeCaches,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Host           string            `json:"host,omitempty"`
	// ExtraArgs is a shell-style string of additional tokens appended to
	// every rendered vector for this profile.
	ExtraArgs string            `json:"extraArgs,omitempty"`
	ExtraEnv  map[string]string `json:"extraEnv,omitempty"`
	// Credentials are backend secrets in kebab case, converted to the
	// environment names the tool reads.
	Credentials map[string]string `json:"credentials,omitempty"`
	// Options are free-form backup flags: keys in any convenient casing
	// become flag names, values "" and "true" bind the bare flag,
	// "false" skips it, anything else binds as the flag's value.
	Options   map[string]string `json:"options,omitempty"`
	Retention *retention.Policy `json:"retention,omitempty"`
	// Prune reclaims repository space right after a forget run.
	Prune bool  `json:"prune,omitempty"`
	Hooks Hooks `json:"hooks,omitempty"`
}

// Hooks are shell-style command strings run around a profile's commands.
type Hooks struct {
	Before    []string `json:"before,omitempty"`
	After     []string `json:"after,omitempty"`
	OnFailure []string `json:"onFailure,omitempty"`
}

// Profile returns the named profile.
func (c *Config) Profile(name string) (*Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf(restix.FmtErrorWithString, ErrProfileNotFound, name)
	}

	return p, nil
}

// Names lists the configured profile names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (c *Config) validate() error {
	if len(c.Profiles) == 0 {
		return errors.New("configuration defines no profiles")
	}

	for _, name := range c.Names() {
		p := c.Profiles[name]
		if p == nil {
			return fmt.Errorf("profile %s: empty definition", name)
		}
		if p.Repository == "" {
			return fmt.Errorf("profile %s: repository is required", name)
		}
	}

	return nil
}

// SecretResolver resolves "secret:<name>" password sources.
type SecretResolver func(name string) (string, error)

// Repo resolves the profile's repository location and password source.
// resolve may be nil when no profile uses the secret store.
func (p *Profile) Repo(resolve SecretResolver) (restic.Repository, error) {
	repo := restic.Repository{URI: p.Repository, Credentials: p.Credentials}

	src := p.PasswordSource
	switch {
	case src == "":
	case strings.HasPrefix(src, "secret:"):
		if resolve == nil {
			return repo, fmt.Errorf("profile %s: password source %q needs an unlocked secret store", p.Name, src)
		}
		password, err := resolve(strings.TrimPrefix(src, "secret:"))
		if err != nil {
			return repo, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		repo.Password = password
	case strings.HasPrefix(src, "file:"):
		repo.PasswordFile = strings.TrimPrefix(src, "file:")
	case strings.HasPrefix(src, "env:"):
		repo.Password = os.Getenv(strings.TrimPrefix(src, "env:"))
	default:
		repo.Password = src
	}

	return repo, nil
}

// Environment renders the process environment overlay for this profile:
// the repository variables plus extraEnv entries, which win on conflict.
func (p *Profile) Environment(resolve SecretResolver) (map[string]string, error) {
	repo, err := p.Repo(resolve)
	if err != nil {
		return nil, err
	}

	env := restic.Env(repo)
	for k, v := range p.ExtraEnv {
		env[k] = v
	}

	return env, nil
}

// ExtraTokens splits ExtraArgs into argv tokens.
func (p *Profile) ExtraTokens() ([]string, error) {
	if p.ExtraArgs == "" {
		return nil, nil
	}

	return parse.Split(p.ExtraArgs)
}
