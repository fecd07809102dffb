package stepid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		input       string
		expected    ID
		expectErr   bool
		errContains string
	}{
		{
			name:     "full uri with scheme",
			input:    "data://garden/energy/2024-06-20/primary_energy",
			expected: ID{Channel: ChannelGarden, Namespace: "energy", Version: "2024-06-20", ShortName: "primary_energy"},
		},
		{
			name:     "uri without scheme",
			input:    "meadow/faostat/2023-01-01/faostat_qcl",
			expected: ID{Channel: ChannelMeadow, Namespace: "faostat", Version: "2023-01-01", ShortName: "faostat_qcl"},
		},
		{
			name:     "floating latest version",
			input:    "data://grapher/energy/latest/primary_energy",
			expected: ID{Channel: ChannelGrapher, Namespace: "energy", Version: VersionLatest, ShortName: "primary_energy"},
		},
		{
			name:        "empty input",
			input:       "",
			expectErr:   true,
			errContains: "cannot be empty",
		},
		{
			name:        "too few segments",
			input:       "data://garden/energy/2024-06-20",
			expectErr:   true,
			errContains: "want channel/namespace/version/short_name",
		},
		{
			name:        "unknown channel",
			input:       "data://attic/energy/2024-06-20/primary_energy",
			expectErr:   true,
			errContains: "unknown channel",
		},
		{
			name:        "snapshot channel uses wrong scheme",
			input:       "data://snapshot/energy/2024-06-20/raw.csv",
			expectErr:   true,
			errContains: "snapshot",
		},
		{
			name:        "non ISO version",
			input:       "data://garden/energy/v1/primary_energy",
			expectErr:   true,
			errContains: "version must be YYYY-MM-DD",
		},
		{
			name:        "bad short name",
			input:       "data://garden/energy/2024-06-20/pri mary",
			expectErr:   true,
			errContains: "bad short name",
		},
		{
			name:        "leading punctuation in namespace",
			input:       "data://garden/.energy/2024-06-20/primary_energy",
			expectErr:   true,
			errContains: "bad namespace",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			id, err := Parse(tc.input)

			if tc.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
		})
	}
}

func TestParseSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("valid snapshot uri", func(t *testing.T) {
		t.Parallel()
		s, err := ParseSnapshot("snapshot://energy/2024-06-20/statistical_review.csv")
		require.NoError(t, err)
		assert.Equal(t, SnapshotID{Namespace: "energy", Version: "2024-06-20", FileName: "statistical_review.csv"}, s)
	})

	t.Run("missing scheme is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSnapshot("energy/2024-06-20/statistical_review.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("wrong segment count", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSnapshot("snapshot://energy/statistical_review.csv")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "want namespace/version/filename")
	})
}

func TestParseRef(t *testing.T) {
	t.Parallel()

	t.Run("dataset ref", func(t *testing.T) {
		t.Parallel()
		ref, err := ParseRef("data://garden/energy/2024-06-20/primary_energy")
		require.NoError(t, err)
		require.NotNil(t, ref.Dataset)
		assert.False(t, ref.IsSnapshot())
	})

	t.Run("snapshot ref", func(t *testing.T) {
		t.Parallel()
		ref, err := ParseRef("snapshot://energy/latest/raw.csv")
		require.NoError(t, err)
		require.NotNil(t, ref.Snapshot)
		assert.True(t, ref.IsSnapshot())
	})
}

func TestAddressRoundTrip(t *testing.T) {
	t.Parallel()

	id := ID{Channel: ChannelGarden, Namespace: "energy", Version: "2024-06-20", ShortName: "primary_energy"}
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	s := SnapshotID{Namespace: "energy", Version: "2024-06-20", FileName: "raw.csv"}
	parsedSnap, err := ParseSnapshot(s.String())
	require.NoError(t, err)
	assert.Equal(t, s, parsedSnap)
}

func TestWithVersion(t *testing.T) {
	t.Parallel()

	id := ID{Channel: ChannelGarden, Namespace: "energy", Version: VersionLatest, ShortName: "primary_energy"}
	pinned := id.WithVersion("2024-06-20")
	assert.Equal(t, "2024-06-20", pinned.Version)
	assert.Equal(t, VersionLatest, id.Version, "receiver must be left untouched")
}
