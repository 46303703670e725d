package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/napalu/restix"
	"github.com/napalu/restix/parse"
	"github.com/napalu/restix/restic"
	"github.com/napalu/restix/retention"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
binary: /usr/local/bin/restic
log:
  level: debug
history: /var/lib/restix/history.db
notifyCommand: notify-send "restix"
profiles:
  home:
    repository: /srv/backup
    password: secret:home
    sources:
      - /home/user
      - /etc
    excludes:
      - "*.tmp"
      - ".cache"
    excludeCaches: true
    tags:
      - nightly
    host: ariel
    extraArgs: "--limit-upload 1024"
    extraEnv:
      TMPDIR: /var/tmp
    credentials:
      aws-access-key-id: AKIAEXAMPLE
    options:
      oneFileSystem: "true"
    retention:
      last: 7
      daily: 14
      within: 1m
    hooks:
      before:
        - /usr/local/bin/pre-backup --quiesce
  media:
    repository: ${RESTIX_TEST_MEDIA_REPO}
    password: file:/etc/restix/media.key
`

func TestParse(t *testing.T) {
	t.Setenv("RESTIX_TEST_MEDIA_REPO", "b2:media-bucket")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/restic", cfg.Binary)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/lib/restix/history.db", cfg.History)
	assert.Equal(t, `notify-send "restix"`, cfg.NotifyCommand)
	assert.Equal(t, []string{"home", "media"}, cfg.Names())

	home, err := cfg.Profile("home")
	require.NoError(t, err)
	assert.Equal(t, "home", home.Name, "the map key becomes the profile name")
	assert.Equal(t, "/srv/backup", home.Repository)
	assert.Equal(t, []string{"/home/user", "/etc"}, home.Sources)
	assert.True(t, home.ExcludeCaches)
	assert.Equal(t, "ariel", home.Host)
	require.NotNil(t, home.Retention)
	assert.Equal(t, 7, home.Retention.Last)
	assert.Equal(t, 14, home.Retention.Daily)
	assert.Equal(t, parse.Duration{Months: 1}, home.Retention.Within)
	assert.Equal(t, []string{"/usr/local/bin/pre-backup --quiesce"}, home.Hooks.Before)

	media, err := cfg.Profile("media")
	require.NoError(t, err)
	assert.Equal(t, "b2:media-bucket", media.Repository, "environment references should expand")
}

func TestParse_DefaultsBinary(t *testing.T) {
	cfg, err := Parse([]byte("profiles:\n  p:\n    repository: /srv/backup\n"))
	require.NoError(t, err)
	assert.Equal(t, "restic", cfg.Binary)
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte("profiles: {}\n"))
	assert.Error(t, err, "a configuration without profiles is useless")

	_, err = Parse([]byte("profiles:\n  broken:\n    host: ariel\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken", "validation errors should name the profile")
	assert.Contains(t, err.Error(), "repository")

	_, err = Parse([]byte("profiles:\n  empty:\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty definition")
}

func TestConfig_ProfileNotFound(t *testing.T) {
	cfg, err := Parse([]byte("profiles:\n  p:\n    repository: /srv/backup\n"))
	require.NoError(t, err)

	_, err = cfg.Profile("nope")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "nope")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restix.yaml")

	cfg, err := Parse([]byte("profiles:\n  p:\n    repository: /srv/backup\n"))
	require.NoError(t, err)
	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "saved configuration may embed passwords")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Names(), loaded.Names())
}

func TestDiscover_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  p:\n    repository: /srv/backup\n"), 0o600))
	t.Setenv("RESTIX_CONFIG", path)

	cfg, used, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, []string{"p"}, cfg.Names())
}

func TestDiscover_NothingFound(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("RESTIX_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, _, err = Discover()
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestProfile_Repo(t *testing.T) {
	t.Run("literal password", func(t *testing.T) {
		p := &Profile{Name: "p", Repository: "/srv/backup", PasswordSource: "hunter2"}
		repo, err := p.Repo(nil)
		require.NoError(t, err)
		assert.Equal(t, "hunter2", repo.Password)
	})

	t.Run("file source", func(t *testing.T) {
		p := &Profile{Name: "p", Repository: "/srv/backup", PasswordSource: "file:/etc/restix/key"}
		repo, err := p.Repo(nil)
		require.NoError(t, err)
		assert.Empty(t, repo.Password)
		assert.Equal(t, "/etc/restix/key", repo.PasswordFile)
	})

	t.Run("env source", func(t *testing.T) {
		t.Setenv("RESTIX_TEST_PW", "from-env")
		p := &Profile{Name: "p", Repository: "/srv/backup", PasswordSource: "env:RESTIX_TEST_PW"}
		repo, err := p.Repo(nil)
		require.NoError(t, err)
		assert.Equal(t, "from-env", repo.Password)
	})

	t.Run("secret source", func(t *testing.T) {
		p := &Profile{Name: "p", Repository: "/srv/backup", PasswordSource: "secret:home"}
		repo, err := p.Repo(func(name string) (string, error) {
			assert.Equal(t, "home", name)
			return "from-store", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "from-store", repo.Password)
	})

	t.Run("secret source without resolver", func(t *testing.T) {
		p := &Profile{Name: "p", Repository: "/srv/backup", PasswordSource: "secret:home"}
		_, err := p.Repo(nil)
		assert.Error(t, err)
	})

	t.Run("resolver error propagates", func(t *testing.T) {
		boom := errors.New("store locked")
		p := &Profile{Name: "p", Repository: "/srv/backup", PasswordSource: "secret:home"}
		_, err := p.Repo(func(string) (string, error) { return "", boom })
		assert.ErrorIs(t, err, boom)
	})
}

func TestProfile_Environment(t *testing.T) {
	p := &Profile{
		Name:           "p",
		Repository:     "/srv/backup",
		PasswordSource: "hunter2",
		Credentials:    map[string]string{"aws-access-key-id": "AKIAEXAMPLE"},
		ExtraEnv: map[string]string{
			"TMPDIR":            "/var/tmp",
			"RESTIC_REPOSITORY": "/elsewhere",
		},
	}

	env, err := p.Environment(nil)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", env["RESTIC_PASSWORD"])
	assert.Equal(t, "AKIAEXAMPLE", env["AWS_ACCESS_KEY_ID"])
	assert.Equal(t, "/var/tmp", env["TMPDIR"])
	assert.Equal(t, "/elsewhere", env["RESTIC_REPOSITORY"], "extraEnv wins on conflict")
}

func TestProfile_ExtraTokens(t *testing.T) {
	p := &Profile{ExtraArgs: `--limit-upload 1024 --option "b2.connections=4"`}
	tokens, err := p.ExtraTokens()
	require.NoError(t, err)
	assert.Equal(t, []string{"--limit-upload", "1024", "--option", "b2.connections=4"}, tokens)

	p = &Profile{}
	tokens, err = p.ExtraTokens()
	require.NoError(t, err)
	assert.Nil(t, tokens)
}

func TestProfile_ApplyBackup(t *testing.T) {
	t.Setenv("RESTIX_TEST_MEDIA_REPO", "b2:media-bucket")
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	home, err := cfg.Profile("home")
	require.NoError(t, err)

	b := restix.NewCommandBuilder(restic.DefinitionFor(cfg.Binary))
	require.NoError(t, home.ApplyBackup(b))

	argv, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/usr/local/bin/restic", "backup",
		"--exclude", "*.tmp", "--exclude", ".cache",
		"--exclude-caches",
		"--tag", "nightly",
		"--host", "ariel",
		"--one-file-system",
	}, argv, "sources are appended by the caller, not bound")
}

func TestProfile_ApplyBackup_UnknownOption(t *testing.T) {
	p := &Profile{
		Name:       "p",
		Repository: "/srv/backup",
		Options:    map[string]string{"definitelyNotAFlag": "1"},
	}

	b := restix.NewCommandBuilder(restic.Definition())
	err := p.ApplyBackup(b)
	assert.ErrorIs(t, err, restix.ErrUnknownParameter, "typos in options should surface")
}

func TestProfile_ApplyForget(t *testing.T) {
	t.Setenv("RESTIX_TEST_MEDIA_REPO", "b2:media-bucket")
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	home, err := cfg.Profile("home")
	require.NoError(t, err)

	b := restix.NewCommandBuilder(restic.DefinitionFor(cfg.Binary))
	require.NoError(t, home.ApplyForget(b))

	argv, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/usr/local/bin/restic", "forget",
		"--keep-last", "7",
		"--keep-daily", "14",
		"--keep-within", "1m",
		"--tag", "nightly",
		"--host", "ariel",
	}, argv)
}

func TestProfile_ApplyForget_NoPolicy(t *testing.T) {
	p := &Profile{Name: "p", Repository: "/srv/backup"}

	b := restix.NewCommandBuilder(restic.Definition())
	err := p.ApplyForget(b)
	assert.ErrorIs(t, err, ErrNoRetention)
}

func TestProfile_ApplyForget_Prune(t *testing.T) {
	p := &Profile{
		Name:       "p",
		Repository: "/srv/backup",
		Retention:  &retention.Policy{Last: 3},
		Prune:      true,
	}

	b := restix.NewCommandBuilder(restic.Definition())
	require.NoError(t, p.ApplyForget(b))

	argv, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"restic", "forget", "--keep-last", "3", "--prune"}, argv)
}
