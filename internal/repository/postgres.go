package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"steelcraft-site/internal/domain"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultPingTimeout     = 5 * time.Second

	uniqueViolation = "23505"
)

// ConnectPostgres opens a pooled connection and verifies it with a ping.
func ConnectPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("repository: database url must not be empty")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open postgres: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping postgres: %w", err)
	}
	return db, nil
}

// Postgres stores articles and contact leads in PostgreSQL. The schema lives
// in the migrations package.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("repository: db must not be nil")
	}
	return &Postgres{db: db}, nil
}

const articleColumns = `id, slug, title, content, excerpt, cover_image, meta_title, meta_description,
	published, published_at, created_at, updated_at, author_username`

// articleRow mirrors the articles table. published_at is NULL for drafts.
type articleRow struct {
	ID              string       `db:"id"`
	Slug            string       `db:"slug"`
	Title           string       `db:"title"`
	Content         string       `db:"content"`
	Excerpt         string       `db:"excerpt"`
	CoverImage      string       `db:"cover_image"`
	MetaTitle       string       `db:"meta_title"`
	MetaDescription string       `db:"meta_description"`
	Published       bool         `db:"published"`
	PublishedAt     sql.NullTime `db:"published_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
	AuthorUsername  string       `db:"author_username"`
}

func (r articleRow) article() domain.Article {
	a := domain.Article{
		ID:              r.ID,
		Slug:            r.Slug,
		Title:           r.Title,
		Content:         r.Content,
		Excerpt:         r.Excerpt,
		CoverImage:      r.CoverImage,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		Published:       r.Published,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		AuthorUsername:  r.AuthorUsername,
	}
	if r.PublishedAt.Valid {
		a.PublishedAt = r.PublishedAt.Time
	}
	return a
}

func rowsToArticles(rows []articleRow) []domain.Article {
	articles := make([]domain.Article, 0, len(rows))
	for _, r := range rows {
		articles = append(articles, r.article())
	}
	return articles
}

func (p *Postgres) FindBySlug(ctx context.Context, slug string) (domain.Article, bool, error) {
	var row articleRow
	err := p.db.GetContext(ctx, &row, `SELECT `+articleColumns+` FROM articles WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, false, nil
	}
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("repository: FindBySlug: %w", err)
	}
	return row.article(), true, nil
}

// Create inserts a. A unique violation on slug is reported as domain.ErrSlugTaken.
func (p *Postgres) Create(ctx context.Context, a domain.Article) error {
	publishedAt := sql.NullTime{Time: a.PublishedAt, Valid: !a.PublishedAt.IsZero()}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Slug, a.Title, a.Content, a.Excerpt, a.CoverImage, a.MetaTitle, a.MetaDescription,
		a.Published, publishedAt, a.CreatedAt, a.UpdatedAt, a.AuthorUsername,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("repository: Create: %w", err)
	}
	return nil
}

func (p *Postgres) ListRecent(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []articleRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT `+articleColumns+` FROM articles ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: ListRecent: %w", err)
	}
	return rowsToArticles(rows), nil
}

func (p *Postgres) ListPublished(ctx context.Context) ([]domain.Article, error) {
	var rows []articleRow
	err := p.db.SelectContext(ctx, &rows,
		`SELECT `+articleColumns+` FROM articles WHERE published ORDER BY published_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("repository: ListPublished: %w", err)
	}
	return rowsToArticles(rows), nil
}

// CreateLead records a contact form submission.
func (p *Postgres) CreateLead(ctx context.Context, l domain.Lead) error {
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO leads (id, name, phone, email, message, source, file_count, created_at)
		VALUES (:id, :name, :phone, :email, :message, :source, :file_count, :created_at)`, l)
	if err != nil {
		return fmt.Errorf("repository: CreateLead: %w", err)
	}
	return nil
}
