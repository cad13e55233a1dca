// Package content holds the data files shipped with the binary: the service
// catalog and the seed articles for the in-memory store.
package content

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"steelcraft-site/internal/domain"
)

//go:embed services.json
var servicesJSON []byte

//go:embed articles.json
var articlesJSON []byte

// ServicesJSON returns the raw embedded catalog.
func ServicesJSON() []byte {
	return servicesJSON
}

// Articles decodes the embedded seed articles.
func Articles() ([]domain.Article, error) {
	var articles []domain.Article
	if err := json.Unmarshal(articlesJSON, &articles); err != nil {
		return nil, fmt.Errorf("content: decode articles.json: %w", err)
	}
	return articles, nil
}
