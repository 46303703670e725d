package profile

import (
	"sort"

	"github.com/napalu/restix"
)

// ApplyBackup positions b on the backup command and binds the profile's
// flags. Source paths are not bound here: they trail the rendered vector
// so a profile can back up any number of them.
func (p *Profile) ApplyBackup(b *restix.CommandBuilder) error {
	if err := b.Command("backup"); err != nil {
		return err
	}

	for _, pattern := range p.Excludes {
		if err := b.ParamValue("exclude", pattern); err != nil {
			return err
		}
	}
	if p.ExcludeCaches {
		if err := b.Param("exclude-caches"); err != nil {
			return err
		}
	}
	for _, tag := range p.Tags {
		if err := b.ParamValue("tag", tag); err != nil {
			return err
		}
	}
	if p.Host != "" {
		if err := b.ParamValue("host", p.Host); err != nil {
			return err
		}
	}

	return p.applyOptions(b)
}

// ApplyForget positions b on the forget command and binds the retention
// policy plus the profile's snapshot filters.
func (p *Profile) ApplyForget(b *restix.CommandBuilder) error {
	if p.Retention == nil || p.Retention.Empty() {
		return ErrNoRetention
	}

	if err := b.Command("forget"); err != nil {
		return err
	}
	if err := p.Retention.Args(b); err != nil {
		return err
	}

	for _, tag := range p.Tags {
		if err := b.ParamValue("tag", tag); err != nil {
			return err
		}
	}
	if p.Host != "" {
		if err := b.ParamValue("host", p.Host); err != nil {
			return err
		}
	}
	if p.Prune {
		if err := b.Param("prune"); err != nil {
			return err
		}
	}

	return nil
}

// applyOptions binds the free-form options map in sorted key order so the
// rendered vector is stable.
func (p *Profile) applyOptions(b *restix.CommandBuilder) error {
	keys := make([]string, 0, len(p.Options))
	for k := range p.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := restix.DefaultFlagNameConverter(key)
		switch value := p.Options[key]; value {
		case "false":
		case "", "true":
			if err := b.Param(name); err != nil {
				return err
			}
		default:
			if err := b.ParamValue(name, value); err != nil {
				return err
			}
		}
	}

	return nil
}
