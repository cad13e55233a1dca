package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	require.NoError(t, err)
	require.Equal(t, Up, d)

	d, err = ParseDirection("down")
	require.NoError(t, err)
	require.Equal(t, Down, d)

	_, err = ParseDirection("sideways")
	require.Error(t, err)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(files, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", n)
		}
	}
	require.Equal(t, ups, downs)
}

func TestArticlesSchemaHasUniqueSlug(t *testing.T) {
	raw, err := fs.ReadFile(files, "000001_create_articles.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(raw), "slug             TEXT        NOT NULL UNIQUE")
}

func TestRun_InvalidURL(t *testing.T) {
	_, err := Run("not-a-url", Up)
	require.Error(t, err)
}
