package definition_test

import (
	"testing"
	"time"

	"github.com/oostools/oossync/pkg/consts"
	. "github.com/oostools/oossync/pkg/definition"
	"github.com/oostools/oossync/pkg/state"
	"github.com/stretchr/testify/require"
)

func TestVersionRecord(t *testing.T) {
	t.Run("round trips through the state store", func(t *testing.T) {
		states := newStates(t)

		rec := &VersionRecord{
			Version:          "4ea28cef12",
			UpdatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			ValidationPassed: true,
			TotalCommands:    7,
			TestLog:          "test_log.md",
		}
		require.NoError(t, SaveRecord(states, rec))

		loaded, err := LoadRecord(states)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		require.Equal(t, rec.Version, loaded.Version)
		require.True(t, rec.UpdatedAt.Equal(loaded.UpdatedAt))
		require.True(t, loaded.ValidationPassed)
		require.Equal(t, 7, loaded.TotalCommands)
		require.Equal(t, "test_log.md", loaded.TestLog)
	})

	t.Run("serialized field names are stable", func(t *testing.T) {
		states := newStates(t)
		require.NoError(t, SaveRecord(states, &VersionRecord{Version: "abc", ValidationPassed: true}))

		data, err := states.Read(consts.VersionFile)
		require.NoError(t, err)

		// External consumers key off these names.
		for _, field := range []string{"oos_version", "updated_at", "validation_passed", "total_commands", "test_log"} {
			require.Contains(t, string(data), field)
		}
	})

	t.Run("missing record reads as nil without error", func(t *testing.T) {
		rec, err := LoadRecord(newStates(t))
		require.NoError(t, err)
		require.Nil(t, rec)
	})

	t.Run("corrupt record reads as nil without error", func(t *testing.T) {
		states := newStates(t)
		require.NoError(t, states.Write(consts.VersionFile, []byte("{not json")))

		rec, err := LoadRecord(states)
		require.NoError(t, err)
		require.Nil(t, rec)
	})
}

func newStates(t *testing.T) state.Store {
	t.Helper()

	states, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return states
}
