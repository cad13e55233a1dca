package domain

import "time"

// DefaultCoverImage is used when an article is created without a cover image.
const DefaultCoverImage = "/images/articles/placeholder.jpg"

// Article is a blog article shown under /article.
type Article struct {
	ID              string    `json:"id" db:"id"`
	Slug            string    `json:"slug" db:"slug"`
	Title           string    `json:"title" db:"title"`
	Content         string    `json:"content" db:"content"`
	Excerpt         string    `json:"excerpt,omitempty" db:"excerpt"`
	CoverImage      string    `json:"coverImage,omitempty" db:"cover_image"`
	MetaTitle       string    `json:"metaTitle,omitempty" db:"meta_title"`
	MetaDescription string    `json:"metaDescription,omitempty" db:"meta_description"`
	Published       bool      `json:"published" db:"published"`
	PublishedAt     time.Time `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt       time.Time `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty" db:"updated_at"`
	AuthorUsername  string    `json:"authorUsername,omitempty" db:"author_username"`
}

// LastModified returns the most recent timestamp known for the article.
func (a Article) LastModified() time.Time {
	if !a.UpdatedAt.IsZero() {
		return a.UpdatedAt
	}
	return a.PublishedAt
}

// SEOTitle returns MetaTitle, falling back to Title.
func (a Article) SEOTitle() string {
	if a.MetaTitle != "" {
		return a.MetaTitle
	}
	return a.Title
}

// SEODescription returns MetaDescription, falling back to Excerpt and then Title.
func (a Article) SEODescription() string {
	switch {
	case a.MetaDescription != "":
		return a.MetaDescription
	case a.Excerpt != "":
		return a.Excerpt
	default:
		return a.Title
	}
}
