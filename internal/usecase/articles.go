package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"

	"steelcraft-site/internal/domain"
	"steelcraft-site/internal/logger"
)

type ArticleReader interface {
	ListPublished(ctx context.Context) ([]domain.Article, error)
	FindBySlug(ctx context.Context, slug string) (domain.Article, bool, error)
}

// Articles is the read side used by pages, the JSON API and the sitemap.
// Store failures never fail a page: they are logged and read as empty.
type Articles struct {
	store ArticleReader
	log   logger.Logger
}

func NewArticles(store ArticleReader, log logger.Logger) (*Articles, error) {
	if store == nil {
		return nil, errors.New("usecase: article reader must not be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Articles{store: store, log: log}, nil
}

// List returns published articles, most recent first.
func (a *Articles) List(ctx context.Context) []domain.Article {
	articles, err := a.store.ListPublished(ctx)
	if err != nil {
		a.log.Error("articles: list failed", logger.Error(err))
		return []domain.Article{}
	}
	out := make([]domain.Article, 0, len(articles))
	for _, art := range articles {
		if art.Published {
			out = append(out, art)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

// Get returns the published article with the given slug.
func (a *Articles) Get(ctx context.Context, slug string) (domain.Article, bool) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Article{}, false
	}
	art, ok, err := a.store.FindBySlug(ctx, slug)
	if err != nil {
		a.log.Error("articles: lookup failed", logger.String("slug", slug), logger.Error(err))
		return domain.Article{}, false
	}
	if !ok || !art.Published {
		return domain.Article{}, false
	}
	return art, true
}
