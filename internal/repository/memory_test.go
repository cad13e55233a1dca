package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"steelcraft-site/internal/domain"
)

func TestMemorySessions(t *testing.T) {
	m := NewMemorySessions()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Set(ctx, 1, sampleSession()))
	got, ok, err := m.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), got.OperatorID)

	require.NoError(t, m.Delete(ctx, 1))
	_, ok, _ = m.Get(ctx, 1)
	require.False(t, ok)
}

func TestMemorySessions_Concurrent(t *testing.T) {
	m := NewMemorySessions()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = m.Set(ctx, id, sampleSession())
			_, _, _ = m.Get(ctx, id)
			_ = m.Delete(ctx, id)
		}(i)
	}
	wg.Wait()
}

func article(slug string, published bool, created time.Time) domain.Article {
	a := domain.Article{Slug: slug, Title: slug, Content: "c", Published: published, CreatedAt: created}
	if published {
		a.PublishedAt = created
	}
	return a
}

func TestMemoryArticles_CreateAndConflict(t *testing.T) {
	m := NewMemoryArticles(nil)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, article("valy", true, testNow)))
	require.ErrorIs(t, m.Create(ctx, article("valy", true, testNow)), domain.ErrSlugTaken)

	got, ok, err := m.FindBySlug(ctx, "valy")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "valy", got.Slug)
}

func TestMemoryArticles_Listing(t *testing.T) {
	m := NewMemoryArticles([]domain.Article{
		article("old", true, testNow.Add(-48*time.Hour)),
		article("draft", false, testNow),
		article("new", true, testNow.Add(-time.Hour)),
		article("old", false, testNow),
	})
	ctx := context.Background()

	recent, err := m.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"draft", "new"}, slugs(recent))

	published, err := m.ListPublished(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "old"}, slugs(published))
}

func slugs(articles []domain.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Slug)
	}
	return out
}
