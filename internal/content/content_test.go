package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/slug"
)

func TestArticles_Decode(t *testing.T) {
	articles, err := Articles()
	require.NoError(t, err)
	require.NotEmpty(t, articles)

	seen := map[string]bool{}
	for _, a := range articles {
		require.NotEmpty(t, a.ID)
		require.NotEmpty(t, a.Title)
		require.NotEmpty(t, a.Content)
		require.Regexp(t, `^[a-z0-9-]+$`, a.Slug)
		require.False(t, seen[a.Slug], "duplicate slug %s", a.Slug)
		seen[a.Slug] = true
		if a.Published {
			require.False(t, a.PublishedAt.IsZero(), a.Slug)
		}
	}
}

func TestArticles_SlugsMatchTitles(t *testing.T) {
	articles, err := Articles()
	require.NoError(t, err)
	for _, a := range articles {
		require.Equal(t, slug.Make(a.Title), a.Slug)
	}
}

func TestServicesJSON_Decodes(t *testing.T) {
	var services []domain.Service
	require.NoError(t, json.Unmarshal(ServicesJSON(), &services))
	require.NotEmpty(t, services)
}
