package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
)

func TestNewArticles_ValidatesDependency(t *testing.T) {
	_, err := NewArticles(nil, logger.NewNop())
	require.Error(t, err)
}

func TestArticles_ListPublishedNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeArticles(
		domain.Article{Slug: "a", Published: true, PublishedAt: base},
		domain.Article{Slug: "b", Published: true, PublishedAt: base.Add(48 * time.Hour)},
		domain.Article{Slug: "c", Published: false, PublishedAt: base.Add(72 * time.Hour)},
	)
	svc, err := NewArticles(store, nil)
	require.NoError(t, err)

	got := svc.List(context.Background())
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Slug)
	require.Equal(t, "a", got[1].Slug)
}

func TestArticles_ListDegradesToEmptyOnError(t *testing.T) {
	store := newFakeArticles(domain.Article{Slug: "a", Published: true})
	store.listErr = errBoom
	svc, err := NewArticles(store, logger.NewNop())
	require.NoError(t, err)

	got := svc.List(context.Background())
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestArticles_Get(t *testing.T) {
	store := newFakeArticles(
		domain.Article{Slug: "live", Published: true},
		domain.Article{Slug: "hidden", Published: false},
	)
	svc, err := NewArticles(store, logger.NewNop())
	require.NoError(t, err)

	_, ok := svc.Get(context.Background(), "live")
	require.True(t, ok)
	_, ok = svc.Get(context.Background(), "hidden")
	require.False(t, ok)
	_, ok = svc.Get(context.Background(), "missing")
	require.False(t, ok)
	_, ok = svc.Get(context.Background(), " ")
	require.False(t, ok)

	store.findErr = errBoom
	_, ok = svc.Get(context.Background(), "live")
	require.False(t, ok)
}
