// Package restic describes the restic command-line dialect: the command
// tree the builder renders against, the environment variables a repository
// needs, and parsers for the tool's JSON output.
package restic

import "github.com/napalu/restix"

// Definition returns the command tree for the restic CLI with the default
// binary name.
func Definition() *restix.CommandDefinition {
	return DefinitionFor("restic")
}

// DefinitionFor names the tree's root after binary, so rendered vectors
// start with the executable the caller wants to spawn. Global flags live on
// the root and stay bindable from any subcommand through the builder's
// root fallback.
func DefinitionFor(binary string) *restix.CommandDefinition {
	return restix.NewDefinition(binary,
		restix.WithDefinitionDescription("backup and restore files into an encrypted repository"),
		restix.WithDefaultStyle(restix.Separate),
		restix.WithParameters(
			valued("repo", "r", "repository location"),
			valued("repository-file", "", "file holding the repository location"),
			valued("password-file", "p", "file holding the repository password"),
			valued("password-command", "", "command that prints the repository password"),
			valued("key-hint", "", "key ID to try first"),
			flag("verbose", "v", "more output"),
			flag("quiet", "q", "less output"),
			flag("json", "", "machine readable output"),
			flag("no-lock", "", "do not lock the repository"),
			flag("no-cache", "", "do not use a local cache"),
			valued("cache-dir", "", "local cache directory"),
			flag("cleanup-cache", "", "remove old cache directories"),
			valued("limit-upload", "", "upload rate limit in KiB/s"),
			valued("limit-download", "", "download rate limit in KiB/s"),
			valued("option", "o", "backend option key=value"),
			valued("cacert", "", "additional CA certificates"),
			valued("tls-client-cert", "", "TLS client certificate and key"),
			flag("insecure-tls", "", "skip TLS certificate verification"),
			valued("retry-lock", "", "retry locking the repository for this long"),
		),
		restix.WithSubcommands(
			initDefinition(),
			backupDefinition(),
			snapshotsDefinition(),
			forgetDefinition(),
			pruneDefinition(),
			checkDefinition(),
			restoreDefinition(),
			lsDefinition(),
			statsDefinition(),
			dumpDefinition(),
			copyDefinition(),
			unlockDefinition(),
			tagDefinition(),
			restix.NewDefinition("version",
				restix.WithDefinitionDescription("print version information")),
		),
	)
}

func initDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("init",
		restix.WithDefinitionDescription("initialize a new repository"),
		restix.WithParameters(
			valued("from-repo", "", "copy chunker parameters from this repository"),
			valued("from-password-file", "", "file holding the source repository password"),
			flag("copy-chunker-params", "", "reuse the source repository chunker parameters"),
		),
	)
}

func backupDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("backup",
		restix.WithDefinitionDescription("create a new snapshot of the given paths"),
		restix.WithSynopsis("[path...]"),
		restix.WithParameters(
			valued("exclude", "e", "exclude files matching the pattern"),
			valued("iexclude", "", "exclude files matching the pattern, case insensitive"),
			valued("exclude-file", "", "read exclude patterns from a file"),
			flag("exclude-caches", "", "exclude directories containing CACHEDIR.TAG"),
			valued("tag", "", "add a tag to the snapshot"),
			valued("host", "H", "set the hostname recorded in the snapshot"),
			valued("parent", "", "use this snapshot as the parent"),
			flag("force", "f", "force rereading the source files"),
			flag("one-file-system", "x", "stay on the same filesystem"),
			valued("files-from", "", "read the source paths from a file"),
			flag("stdin", "", "read the backup data from stdin"),
			valued("stdin-filename", "", "filename to record when reading from stdin"),
			flag("dry-run", "n", "do not upload or write anything"),
			flag("with-atime", "", "store the access time of files"),
		),
	)
}

func snapshotsDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("snapshots",
		restix.WithDefinitionDescription("list snapshots"),
		restix.WithSynopsis("[snapshotID...]"),
		restix.WithParameters(
			valued("host", "H", "only snapshots for this host"),
			valued("tag", "", "only snapshots with this tag"),
			valued("path", "", "only snapshots containing this path"),
			valued("latest", "", "only the last n snapshots per host and path"),
			valued("group-by", "g", "group snapshots by host, paths or tags"),
			flag("compact", "c", "use compact output"),
		),
	)
}

func forgetDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("forget",
		restix.WithDefinitionDescription("remove snapshots according to a policy"),
		restix.WithSynopsis("[snapshotID...]"),
		restix.WithParameters(
			valued("keep-last", "l", "keep the last n snapshots"),
			valued("keep-hourly", "H", "keep the last n hourly snapshots"),
			valued("keep-daily", "d", "keep the last n daily snapshots"),
			valued("keep-weekly", "w", "keep the last n weekly snapshots"),
			valued("keep-monthly", "m", "keep the last n monthly snapshots"),
			valued("keep-yearly", "y", "keep the last n yearly snapshots"),
			valued("keep-within", "", "keep snapshots newer than this duration"),
			valued("keep-tag", "", "keep snapshots with this tag"),
			valued("host", "", "only consider snapshots for this host"),
			valued("tag", "", "only consider snapshots with this tag"),
			valued("path", "", "only consider snapshots containing this path"),
			valued("group-by", "g", "group snapshots by host, paths or tags"),
			flag("prune", "", "run prune after removing snapshots"),
			flag("dry-run", "n", "do not remove anything"),
		),
	)
}

func pruneDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("prune",
		restix.WithDefinitionDescription("remove unreferenced data from the repository"),
		restix.WithParameters(
			valued("max-unused", "", "tolerated unused space after prune"),
			valued("max-repack-size", "", "stop repacking after this much data"),
			flag("repack-cacheable-only", "", "only repack cacheable packs"),
			flag("dry-run", "n", "do not modify the repository"),
		),
	)
}

func checkDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("check",
		restix.WithDefinitionDescription("check the repository for errors"),
		restix.WithParameters(
			flag("read-data", "", "read all data blobs"),
			valued("read-data-subset", "", "read a subset of the data blobs"),
			flag("with-cache", "", "use the local cache"),
		),
	)
}

func restoreDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("restore",
		restix.WithDefinitionDescription("extract a snapshot to a target directory"),
		restix.WithSynopsis("snapshotID"),
		restix.WithParameters(
			restix.NewParameter("target",
				restix.WithStyle(restix.Separate),
				restix.SetValueRequired(true),
				restix.SetRequired(true),
				restix.WithShortForm("t", restix.SingleDash),
				restix.WithDescription("directory to extract data to")),
			valued("include", "i", "only restore paths matching the pattern"),
			valued("exclude", "e", "do not restore paths matching the pattern"),
			valued("host", "H", "only consider snapshots for this host"),
			valued("path", "", "only consider snapshots containing this path"),
			valued("tag", "", "only consider snapshots with this tag"),
			flag("verify", "", "verify restored files against the snapshot"),
		),
	)
}

func lsDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("ls",
		restix.WithDefinitionDescription("list snapshot contents"),
		restix.WithSynopsis("snapshotID", "[dir...]"),
		restix.WithParameters(
			flag("long", "l", "use the long output format"),
			flag("recursive", "", "include subdirectories"),
			valued("host", "H", "only consider snapshots for this host"),
			valued("path", "", "only consider snapshots containing this path"),
			valued("tag", "", "only consider snapshots with this tag"),
		),
	)
}

func statsDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("stats",
		restix.WithDefinitionDescription("report repository statistics"),
		restix.WithSynopsis("[snapshotID...]"),
		restix.WithParameters(
			valued("mode", "", "counting mode: restore-size, files-by-contents, blobs-per-file or raw-data"),
			valued("host", "H", "only consider snapshots for this host"),
			valued("path", "", "only consider snapshots containing this path"),
			valued("tag", "", "only consider snapshots with this tag"),
		),
	)
}

func dumpDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("dump",
		restix.WithDefinitionDescription("print a file from a snapshot to stdout"),
		restix.WithSynopsis("snapshotID", "file"),
		restix.WithParameters(
			valued("archive", "a", "dump directories as this archive format"),
			valued("host", "H", "only consider snapshots for this host"),
			valued("path", "", "only consider snapshots containing this path"),
			valued("tag", "", "only consider snapshots with this tag"),
		),
	)
}

func copyDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("copy",
		restix.WithDefinitionDescription("copy snapshots to another repository"),
		restix.WithSynopsis("[snapshotID...]"),
		restix.WithParameters(
			valued("from-repo", "", "source repository location"),
			valued("from-repository-file", "", "file holding the source repository location"),
			valued("from-password-file", "", "file holding the source repository password"),
			valued("host", "H", "only consider snapshots for this host"),
			valued("path", "", "only consider snapshots containing this path"),
			valued("tag", "", "only consider snapshots with this tag"),
		),
	)
}

func unlockDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("unlock",
		restix.WithDefinitionDescription("remove locks other processes created"),
		restix.WithParameters(
			flag("remove-all", "", "remove all locks, even non-stale ones"),
		),
	)
}

func tagDefinition() *restix.CommandDefinition {
	return restix.NewDefinition("tag",
		restix.WithDefinitionDescription("modify tags on snapshots"),
		restix.WithSynopsis("[snapshotID...]"),
		restix.WithParameters(
			valued("add", "", "add this tag"),
			valued("remove", "", "remove this tag"),
			valued("set", "", "replace all tags with this one"),
			valued("host", "H", "only consider snapshots for this host"),
			valued("path", "", "only consider snapshots containing this path"),
			valued("tag", "", "only consider snapshots with this tag"),
		),
	)
}

// valued describes a flag that carries a value, rendered as two tokens.
func valued(name, short, description string) *restix.CommandParameter {
	configs := []restix.ConfigureParameterFunc{
		restix.WithStyle(restix.Separate),
		restix.SetValueRequired(true),
		restix.WithDescription(description),
	}
	if short != "" {
		configs = append(configs, restix.WithShortForm(short, restix.SingleDash))
	}

	return restix.NewParameter(name, configs...)
}

// flag describes a boolean switch.
func flag(name, short, description string) *restix.CommandParameter {
	configs := []restix.ConfigureParameterFunc{
		restix.WithStyle(restix.DoubleDash),
		restix.WithDescription(description),
	}
	if short != "" {
		configs = append(configs, restix.WithShortForm(short, restix.SingleDash))
	}

	return restix.NewParameter(name, configs...)
}
