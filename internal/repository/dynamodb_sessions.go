package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"steelcraft-site/internal/domain"
)

// Get loads the open session for an operator. Items whose ttl has passed but
// which DynamoDB has not yet reaped are treated as absent.
func (c *Client) Get(ctx context.Context, operatorID int64) (domain.Session, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            key(sessionPK(operatorID), skSession),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("repository: GetSession get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Session{}, false, nil
	}
	if _, ok := out.Item["ttl"]; ok {
		ttl, err := intAttr(out.Item, "ttl")
		if err != nil {
			return domain.Session{}, false, fmt.Errorf("repository: GetSession decode ttl: %w", err)
		}
		if ttl <= c.now().Unix() {
			return domain.Session{}, false, nil
		}
	}
	s, err := itemToSession(out.Item)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("repository: GetSession unmarshal: %w", err)
	}
	return s, true, nil
}

// Set writes or replaces the operator's session.
func (c *Client) Set(ctx context.Context, operatorID int64, s domain.Session) error {
	if !s.Step.Valid() {
		return fmt.Errorf("repository: SetSession: invalid step %s", s.Step)
	}
	s.OperatorID = operatorID
	item := sessionItem(s)
	if c.sessionTTL > 0 {
		item["ttl"] = intValue(c.now().Add(c.sessionTTL).Unix())
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: SetSession: %w", err)
	}
	return nil
}

// Delete removes the operator's session. Deleting a missing session is not an error.
func (c *Client) Delete(ctx context.Context, operatorID int64) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       key(sessionPK(operatorID), skSession),
	})
	if err != nil {
		return fmt.Errorf("repository: DeleteSession: %w", err)
	}
	return nil
}

func sessionItem(s domain.Session) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":         strValue(sessionPK(s.OperatorID)),
		"SK":         strValue(skSession),
		"operatorId": intValue(s.OperatorID),
		"chatId":     intValue(s.ChatID),
		"username":   strValue(s.Username),
		"step":       strValue(s.Step.String()),
		"startedAt":  timeValue(s.StartedAt),
	}
	optional := map[string]string{
		"title":      s.Draft.Title,
		"content":    s.Draft.Content,
		"excerpt":    s.Draft.Excerpt,
		"coverImage": s.Draft.CoverImageURL,
	}
	for k, v := range optional {
		if v != "" {
			item[k] = strValue(v)
		}
	}
	return item
}

// itemToSession converts a DynamoDB attribute map to a Session.
func itemToSession(item map[string]types.AttributeValue) (domain.Session, error) {
	var (
		s   domain.Session
		err error
	)
	if s.OperatorID, err = intAttr(item, "operatorId"); err != nil {
		return domain.Session{}, err
	}
	if s.ChatID, err = intAttr(item, "chatId"); err != nil {
		return domain.Session{}, err
	}
	stepName, err := strAttr(item, "step")
	if err != nil {
		return domain.Session{}, err
	}
	if s.Step, err = domain.ParseStep(stepName); err != nil {
		return domain.Session{}, err
	}
	strs := []struct {
		key string
		dst *string
	}{
		{"username", &s.Username},
		{"title", &s.Draft.Title},
		{"content", &s.Draft.Content},
		{"excerpt", &s.Draft.Excerpt},
		{"coverImage", &s.Draft.CoverImageURL},
	}
	for _, f := range strs {
		if *f.dst, err = optStrAttr(item, f.key); err != nil {
			return domain.Session{}, err
		}
	}
	if s.StartedAt, err = timeAttr(item, "startedAt"); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}
