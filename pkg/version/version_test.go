package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionDefaults(t *testing.T) {
	require.Equal(t, "dev", Version)
	require.Equal(t, "", Commit)
	require.Equal(t, "dev", String())
}

func TestVersionWithCommit(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version, Commit = "1.2.0", "abc123"
	require.Equal(t, "1.2.0 (abc123)", String())
}
