package system_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pkg.world.dev/ecscore/cmdbuffer"
	"pkg.world.dev/ecscore/search"
	"pkg.world.dev/ecscore/system"
)

func noopBody(search.Record, *cmdbuffer.Buffer) error { return nil }

func TestNewRejectsEmptyAccessTable(t *testing.T) {
	_, err := system.New(noopBody, system.AccessTable{})
	require.ErrorIs(t, err, system.ErrEmptyAccessTable)
}

func TestNewDerivesNameFromBody(t *testing.T) {
	d, err := system.New(noopBody, system.AccessTable{"Health": system.ReadOnly})
	require.NoError(t, err)
	require.Contains(t, d.Name(), "noopBody")
}

func TestOptionsApply(t *testing.T) {
	d, err := system.New(
		noopBody,
		system.AccessTable{"Health": system.ReadWrite},
		system.Name("CustomName"),
		system.Before("B"),
		system.After("A"),
		system.Group(3),
		system.Parallel(),
	)
	require.NoError(t, err)
	require.Equal(t, "CustomName", d.Name())
	require.Equal(t, []string{"B"}, d.Before())
	require.Equal(t, []string{"A"}, d.After())
	require.Equal(t, 3, d.Group())
	require.True(t, d.Parallel())
}

func TestAccessNames(t *testing.T) {
	d, err := system.New(noopBody, system.AccessTable{"Health": system.ReadOnly, "Pos": system.ReadWrite})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Health", "Pos"}, d.AccessNames())
}
