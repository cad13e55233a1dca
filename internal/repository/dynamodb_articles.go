package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"steelcraft-site/internal/domain"
)

// FindBySlug returns the article stored under slug, if any.
func (c *Client) FindBySlug(ctx context.Context, slug string) (domain.Article, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(articlePK(slug), skArticle),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("repository: FindBySlug get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Article{}, false, nil
	}
	a, err := itemToArticle(out.Item)
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("repository: FindBySlug unmarshal: %w", err)
	}
	return a, true, nil
}

// Create inserts a new article. The put is conditional on the slug being
// unused, so concurrent creations of the same slug yield domain.ErrSlugTaken.
func (c *Client) Create(ctx context.Context, a domain.Article) error {
	if a.Slug == "" {
		return errors.New("repository: Create: slug is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                articleItem(a),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("repository: Create: %w", err)
	}
	return nil
}

// ListRecent returns up to limit articles, published or not, newest first.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(articleIndex),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": strValue(articlesPK),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListRecent query: %w", err)
	}
	articles, err := itemsToArticles(out.Items)
	if err != nil {
		return nil, fmt.Errorf("repository: ListRecent unmarshal: %w", err)
	}
	return articles, nil
}

// ListPublished returns every published article, newest first. It follows
// LastEvaluatedKey until the index is exhausted.
func (c *Client) ListPublished(ctx context.Context) ([]domain.Article, error) {
	var (
		articles []domain.Article
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			IndexName:              aws.String(articleIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			FilterExpression:       aws.String("published = :published"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":        strValue(articlesPK),
				":published": &types.AttributeValueMemberBOOL{Value: true},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListPublished query: %w", err)
		}
		page, err := itemsToArticles(out.Items)
		if err != nil {
			return nil, fmt.Errorf("repository: ListPublished unmarshal: %w", err)
		}
		articles = append(articles, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return articles, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func articleItem(a domain.Article) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":             strValue(articlePK(a.Slug)),
		"SK":             strValue(skArticle),
		"GSI1PK":         strValue(articlesPK),
		"GSI1SK":         timeValue(a.CreatedAt),
		"id":             strValue(a.ID),
		"slug":           strValue(a.Slug),
		"title":          strValue(a.Title),
		"content":        strValue(a.Content),
		"published":      &types.AttributeValueMemberBOOL{Value: a.Published},
		"createdAt":      timeValue(a.CreatedAt),
		"updatedAt":      timeValue(a.UpdatedAt),
		"authorUsername": strValue(a.AuthorUsername),
	}
	optional := map[string]string{
		"excerpt":         a.Excerpt,
		"coverImage":      a.CoverImage,
		"metaTitle":       a.MetaTitle,
		"metaDescription": a.MetaDescription,
	}
	for k, v := range optional {
		if v != "" {
			item[k] = strValue(v)
		}
	}
	if !a.PublishedAt.IsZero() {
		item["publishedAt"] = timeValue(a.PublishedAt)
	}
	return item
}

func itemsToArticles(items []map[string]types.AttributeValue) ([]domain.Article, error) {
	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		a, err := itemToArticle(item)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// itemToArticle converts a DynamoDB attribute map to an Article.
func itemToArticle(item map[string]types.AttributeValue) (domain.Article, error) {
	var (
		a   domain.Article
		err error
	)
	if a.Slug, err = strAttr(item, "slug"); err != nil {
		return domain.Article{}, err
	}
	if a.Title, err = strAttr(item, "title"); err != nil {
		return domain.Article{}, err
	}
	if a.Content, err = strAttr(item, "content"); err != nil {
		return domain.Article{}, err
	}
	strs := []struct {
		key string
		dst *string
	}{
		{"id", &a.ID},
		{"excerpt", &a.Excerpt},
		{"coverImage", &a.CoverImage},
		{"metaTitle", &a.MetaTitle},
		{"metaDescription", &a.MetaDescription},
		{"authorUsername", &a.AuthorUsername},
	}
	for _, s := range strs {
		if *s.dst, err = optStrAttr(item, s.key); err != nil {
			return domain.Article{}, err
		}
	}
	if a.Published, err = boolAttr(item, "published"); err != nil {
		return domain.Article{}, err
	}
	times := []struct {
		key string
		dst *time.Time
	}{
		{"publishedAt", &a.PublishedAt},
		{"createdAt", &a.CreatedAt},
		{"updatedAt", &a.UpdatedAt},
	}
	for _, tf := range times {
		if *tf.dst, err = timeAttr(item, tf.key); err != nil {
			return domain.Article{}, err
		}
	}
	return a, nil
}
