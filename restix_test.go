package restix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDefinition builds the tree most builder tests run against: two global
// flags, a repeatable flag in both Separate and Joined styles, and a restore
// subcommand with its own parameter and a required synopsis parameter.
func testDefinition() *CommandDefinition {
	return NewDefinition("test-cmd",
		WithParameters(
			NewParameter("verbose", WithStyle(DoubleDash), WithShortForm("v", SingleDash)),
			NewParameter("output", WithStyle(Separate), SetValueRequired(true), WithShortForm("o", Separate)),
			NewParameter("tag", WithStyle(Separate)),
			NewParameter("tags", WithStyle(Joined)),
		),
		WithSubcommand(NewDefinition("restore",
			WithParameter(NewParameter("target", WithStyle(Separate))),
			WithSynopsis("snapshotID"),
		)),
	)
}

func TestCommandBuilder_Build(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	assert.Nil(t, builder.Param("verbose"), "verbose takes no value and should bind")
	assert.Nil(t, builder.ParamValue("output", "file.txt"), "output should bind with a value")

	argv, err := builder.Build()
	assert.Nil(t, err, "build should succeed with valid bindings")
	assert.Equal(t, []string{"test-cmd", "--verbose", "--output", "file.txt"}, argv,
		"flags should render in first-bound order after the root name")
}

func TestCommandBuilder_BuildSynopsis(t *testing.T) {
	definition := NewDefinition("test-cmd", WithSynopsis("snapshotID", "[dir...]"))
	builder := NewCommandBuilder(definition)

	argv, err := builder.Build(WithSynopsisValues(map[string]string{"snapshotID": "abc123"}))
	assert.Nil(t, err, "required synopsis value was supplied")
	assert.Equal(t, []string{"test-cmd", "abc123"}, argv, "optional synopsis params contribute nothing when absent")

	argv, err = builder.Build(WithSynopsisValues(map[string]string{"snapshotID": "abc123", "dir": "/restore/here"}))
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "abc123", "/restore/here"}, argv,
		"synopsis values should render in declared order")

	argv, err = builder.Build()
	assert.ErrorIs(t, err, ErrMissingSynopsisParameter, "a missing required synopsis value must fail the build")
	assert.Contains(t, err.Error(), "snapshotID", "the error should identify the missing synopsis key")
	assert.Nil(t, argv, "no partial vector on failure")
}

func TestCommandBuilder_Command(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	require.Nil(t, builder.Command("restore"), "restore is a registered subcommand")
	assert.Nil(t, builder.ParamValue("target", "/out"), "target belongs to the restore subcommand")

	argv, err := builder.Build(WithSynopsisValues(map[string]string{"snapshotID": "abc123"}))
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "restore", "--target", "/out", "abc123"}, argv,
		"the subcommand chain should precede bindings and the synopsis value should come last")
}

func TestCommandBuilder_JoinedList(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	assert.Nil(t, builder.ParamValues("tags", "a", "b", "c"))

	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "--tags=a", "--tags=b", "--tags=c"}, argv,
		"Joined list values should render one single token per element")
}

func TestCommandBuilder_RepeatedBinding(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	assert.Nil(t, builder.ParamValue("tag", "a"))
	assert.Nil(t, builder.ParamValue("tag", "b"))

	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "--tag", "a", "--tag", "b"}, argv,
		"rebinding the same parameter should coalesce into a list in first-bound order")

	assert.Nil(t, builder.ParamValues("tag", "c", "d"), "value lists should append to an existing binding")
	argv, err = builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "--tag", "a", "--tag", "b", "--tag", "c", "--tag", "d"}, argv)
}

func TestCommandBuilder_BuildIsIdempotent(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	require.Nil(t, builder.Command("restore"))
	require.Nil(t, builder.Param("verbose"))
	require.Nil(t, builder.ParamValue("tag", "nightly"))

	values := WithSynopsisValues(map[string]string{"snapshotID": "abc123"})
	first, err := builder.Build(values)
	require.Nil(t, err)
	second, err := builder.Build(values)
	require.Nil(t, err)
	assert.Equal(t, first, second, "build must not mutate builder state")

	// A failed render must not poison later renders either
	_, err = builder.Build()
	require.ErrorIs(t, err, ErrMissingSynopsisParameter)
	third, err := builder.Build(values)
	assert.Nil(t, err)
	assert.Equal(t, first, third)
}

func TestCommandBuilder_ShortForm(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	require.Nil(t, builder.Param("verbose"))
	require.Nil(t, builder.ParamValue("output", "file.txt"))
	require.Nil(t, builder.ParamValue("tag", "a"))

	argv, err := builder.Build(UseShortForm())
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "-v", "-o", "file.txt", "--tag", "a"}, argv,
		"short aliases should substitute name and style; parameters without an alias keep their long form")

	argv, err = builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "--verbose", "--output", "file.txt", "--tag", "a"}, argv,
		"the default build should be unaffected by an earlier short-form render")
}

func TestCommandBuilder_SeparateShortFormForcesSingleDash(t *testing.T) {
	definition := NewDefinition("tool",
		WithParameter(NewParameter("config", WithStyle(Separate), WithPrefix("--"), WithShortForm("c", Separate))),
	)
	builder := NewCommandBuilder(definition)

	require.Nil(t, builder.ParamValue("config", "a.yaml"))

	argv, err := builder.Build(UseShortForm())
	assert.Nil(t, err)
	assert.Equal(t, []string{"tool", "-c", "a.yaml"}, argv,
		"a Separate short alias is conventionally single-dash even when the long prefix is --")
}

func TestCommandBuilder_SingleDashIgnoresPrefix(t *testing.T) {
	definition := NewDefinition("tool",
		WithParameter(NewParameter("P", WithStyle(SingleDash), WithPrefix("--"))),
	)
	builder := NewCommandBuilder(definition)

	require.Nil(t, builder.ParamValue("P", "profile1"))

	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"tool", "-P", "profile1"}, argv, "SingleDash always renders a single dash")
}

func TestCommandBuilder_UnknownParameter(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	err := builder.ParamValue("bogus", "x")
	assert.ErrorIs(t, err, ErrUnknownParameter)
	assert.Contains(t, err.Error(), "bogus", "the error should identify the unknown name")

	// A failed binding leaves no trace
	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd"}, argv)
}

func TestCommandBuilder_UnknownSubcommand(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	err := builder.Command("bogus")
	assert.ErrorIs(t, err, ErrUnknownSubcommand)
	assert.Contains(t, err.Error(), "bogus")
	assert.Empty(t, builder.Chain(), "a failed descent must not advance the cursor")
	assert.Same(t, builder.Root(), builder.Cursor())
}

func TestCommandBuilder_MissingValue(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	err := builder.Param("output")
	assert.ErrorIs(t, err, ErrMissingValue, "output requires a value and its style does not tolerate a bare flag")
	assert.Contains(t, err.Error(), "output")

	// DoubleDash and SingleDash tolerate a bare flag even when a value is required
	definition := NewDefinition("tool",
		WithParameters(
			NewParameter("force", WithStyle(DoubleDash), SetValueRequired(true)),
			NewParameter("x", WithStyle(SingleDash), SetValueRequired(true)),
		),
	)
	tolerant := NewCommandBuilder(definition)
	assert.Nil(t, tolerant.Param("force"))
	assert.Nil(t, tolerant.Param("x"))

	argv, err := tolerant.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"tool", "--force", "-x"}, argv)
}

func TestCommandBuilder_RootParameterFallback(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	require.Nil(t, builder.Command("restore"))
	assert.Nil(t, builder.Param("verbose"), "root parameters stay bindable from a subcommand context")

	argv, err := builder.Build(WithSynopsisValues(map[string]string{"snapshotID": "abc123"}))
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "restore", "--verbose", "abc123"}, argv)
}

func TestCommandBuilder_SubcommandParameterNotVisibleFromRoot(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	err := builder.ParamValue("target", "/out")
	assert.ErrorIs(t, err, ErrUnknownParameter, "subcommand parameters must not leak into the root scope")
}

func TestCommandBuilder_BindingUnreachableAfterDescent(t *testing.T) {
	definition := NewDefinition("root-cmd",
		WithSubcommand(NewDefinition("mid",
			WithParameter(NewParameter("depth")),
			WithSubcommand(NewDefinition("leaf")),
		)),
	)
	builder := NewCommandBuilder(definition)

	require.Nil(t, builder.Command("mid"))
	require.Nil(t, builder.ParamValue("depth", "3"))

	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"root-cmd", "mid", "--depth", "3"}, argv)

	// Descending further makes the mid-level descriptor unreachable: it is
	// neither on the cursor nor on the root when the render resolves it.
	require.Nil(t, builder.Command("leaf"))
	argv, err = builder.Build()
	assert.ErrorIs(t, err, ErrUnknownParameter)
	assert.Nil(t, argv)
}

func TestCommandBuilder_DeferredValue(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	host := "unset"
	require.Nil(t, builder.ParamFunc("output", func() string { return host }))
	host = "set-after-binding"

	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "--output", "set-after-binding"}, argv,
		"deferred values resolve at render time, not at binding time")
}

func TestCommandBuilder_DeferredResolvedPerBuild(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	calls := 0
	require.Nil(t, builder.ParamFunc("output", func() string {
		calls++
		return fmt.Sprintf("run-%d", calls)
	}))

	first, err := builder.Build()
	require.Nil(t, err)
	second, err := builder.Build()
	require.Nil(t, err)

	assert.Equal(t, []string{"test-cmd", "--output", "run-1"}, first)
	assert.Equal(t, []string{"test-cmd", "--output", "run-2"}, second, "the callable is invoked on every render")
	assert.Equal(t, 2, calls)
}

func TestCommandBuilder_PositionalStyle(t *testing.T) {
	newBuilder := func() *CommandBuilder {
		return NewCommandBuilder(NewDefinition("tool",
			WithParameter(NewParameter("path", WithStyle(Positional))),
		))
	}

	t.Run("scalar value renders the value only", func(t *testing.T) {
		builder := newBuilder()
		require.Nil(t, builder.ParamValue("path", "/data"))

		argv, err := builder.Build()
		assert.Nil(t, err)
		assert.Equal(t, []string{"tool", "/data"}, argv)
	})

	t.Run("no value renders the name", func(t *testing.T) {
		builder := newBuilder()
		require.Nil(t, builder.Param("path"))

		argv, err := builder.Build()
		assert.Nil(t, err)
		assert.Equal(t, []string{"tool", "path"}, argv)
	})

	t.Run("list values repeat the name ahead of every element", func(t *testing.T) {
		builder := newBuilder()
		require.Nil(t, builder.ParamValues("path", "/a", "/b"))

		argv, err := builder.Build()
		assert.Nil(t, err)
		assert.Equal(t, []string{"tool", "path", "/a", "path", "/b"}, argv)
	})
}

func TestCommandBuilder_Clear(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	require.Nil(t, builder.Command("restore"))
	require.Nil(t, builder.ParamValue("target", "/out"))
	require.Nil(t, builder.Param("verbose"))

	builder.Clear()

	assert.Empty(t, builder.Chain(), "Clear should reset the subcommand chain")
	assert.Same(t, builder.Root(), builder.Cursor(), "Clear should reset the cursor to the root")

	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd"}, argv, "Clear should drop all bindings")

	// The cleared builder is reusable
	require.Nil(t, builder.ParamValue("output", "other.txt"))
	argv, err = builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "--output", "other.txt"}, argv)
}

func TestCommandBuilder_Chain(t *testing.T) {
	definition := NewDefinition("root-cmd",
		WithSubcommand(NewDefinition("mid",
			WithSubcommand(NewDefinition("leaf")),
		)),
	)
	builder := NewCommandBuilder(definition)

	require.Nil(t, builder.Command("mid"))
	require.Nil(t, builder.Command("leaf"))

	chain := builder.Chain()
	assert.Equal(t, []string{"mid", "leaf"}, chain)

	chain[0] = "mutated"
	assert.Equal(t, []string{"mid", "leaf"}, builder.Chain(), "Chain should return a copy")
}

func TestCommandBuilder_JoinedValueless(t *testing.T) {
	builder := NewCommandBuilder(testDefinition())

	require.Nil(t, builder.Param("tags"))

	argv, err := builder.Build()
	assert.Nil(t, err)
	assert.Equal(t, []string{"test-cmd", "--tags"}, argv, "a valueless Joined binding renders the bare flag token")
}
