package main

import (
	"testing"

	"github.com/napalu/restix"
	"github.com/napalu/restix/completion"
	"github.com/napalu/restix/restic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLine_Backup(t *testing.T) {
	argv, err := renderLine(restic.Definition(), "backup /home/alice --tag nightly")
	require.NoError(t, err, "a plain backup line should render")

	assert.Equal(t, []string{"restic", "backup", "--tag", "nightly", "/home/alice"}, argv,
		"bare words fill the synopsis after the bound flags")
}

func TestRenderLine_Restore(t *testing.T) {
	argv, err := renderLine(restic.Definition(), "restore 9f3c --target /tmp/out")
	require.NoError(t, err, "restore with a snapshot ID and target should render")

	assert.Equal(t, []string{"restic", "restore", "--target", "/tmp/out", "9f3c"}, argv,
		"the snapshot ID lands in the synopsis slot")
}

func TestRenderLine_JoinedAssignment(t *testing.T) {
	argv, err := renderLine(restic.Definition(), "forget --keep-last=3 --prune")
	require.NoError(t, err, "flag=value assignments should bind")

	assert.Equal(t, []string{"restic", "forget", "--keep-last", "3", "--prune"}, argv,
		"the assignment renders in the parameter's declared style")
}

func TestRenderLine_ShortAlias(t *testing.T) {
	argv, err := renderLine(restic.Definition(), "backup /srv -e *.log")
	require.NoError(t, err, "short aliases should resolve to their descriptor")

	assert.Equal(t, []string{"restic", "backup", "--exclude", "*.log", "/srv"}, argv,
		"short input still renders the long form")
}

func TestRenderLine_RootFlagFromSubcommand(t *testing.T) {
	argv, err := renderLine(restic.Definition(), "snapshots --json")
	require.NoError(t, err, "root flags should bind from any subcommand")

	assert.Equal(t, []string{"restic", "snapshots", "--json"}, argv)
}

func TestRenderLine_UnknownFlag(t *testing.T) {
	_, err := renderLine(restic.Definition(), "backup --frobnicate")

	assert.ErrorIs(t, err, restix.ErrUnknownParameter, "unknown flags are rejected, not passed through")
}

func TestRenderLine_PassthroughCommand(t *testing.T) {
	argv, err := renderLine(restic.Definition(), "mount /mnt/snapshots")
	require.NoError(t, err, "words the tree does not know become trailing tokens")

	assert.Equal(t, []string{"restic", "mount", "/mnt/snapshots"}, argv)
}

func TestRenderLine_LiteralTokens(t *testing.T) {
	argv, err := renderLine(restic.Definition(), "backup -- --not-a-flag")
	require.NoError(t, err, "tokens after -- are taken literally")

	assert.Equal(t, []string{"restic", "backup", "--", "--not-a-flag"}, argv,
		"the separator and everything after it trail the rendered vector")
}

func TestRenderLine_MissingSynopsis(t *testing.T) {
	_, err := renderLine(restic.Definition(), "restore --target /tmp/out")

	assert.ErrorIs(t, err, restix.ErrMissingSynopsisParameter,
		"restore needs its snapshot ID slot filled")
}

func TestCompleteLine_Commands(t *testing.T) {
	data := completion.FromDefinition(restic.Definition())

	out := completeLine(data, "ba")
	assert.Equal(t, []string{"backup"}, out, "only commands matching the typed prefix remain")

	out = completeLine(data, "")
	assert.Contains(t, out, "help", "the console's own verbs complete on an empty line")
	assert.Contains(t, out, "backup")
}

func TestCompleteLine_Flags(t *testing.T) {
	data := completion.FromDefinition(restic.Definition())

	out := completeLine(data, "backup --ex")
	assert.Contains(t, out, "backup --exclude", "command flags complete after the command")
	assert.Contains(t, out, "backup --exclude-caches")
	assert.NotContains(t, out, "backup --keep-last", "flags of other commands stay out")

	out = completeLine(data, "snapshots --re")
	assert.Contains(t, out, "snapshots --repo", "root flags complete behind any command")
}

func TestCompleteLine_NestedCommands(t *testing.T) {
	root := restix.NewDefinition("tool",
		restix.WithSubcommands(
			restix.NewDefinition("key",
				restix.WithSubcommands(
					restix.NewDefinition("add"),
					restix.NewDefinition("remove"),
				),
			),
		),
	)
	data := completion.FromDefinition(root)

	out := completeLine(data, "key ")
	assert.Contains(t, out, "key add", "children of the matched path complete next")
	assert.Contains(t, out, "key remove")
	assert.NotContains(t, out, "key key", "already matched commands do not repeat")
}
