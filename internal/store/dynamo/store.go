package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

const (
	DefaultRegion  = "us-east-1"
	DefaultHashKey = "id"
)

// ErrNotFound is returned by Get when the table has no item for the ID.
var ErrNotFound = errors.New("bookmark not found")

// item is the DynamoDB representation of a bookmark.
type item struct {
	ID          string `dynamodbav:"id"`
	Name        string `dynamodbav:"name"`
	Description string `dynamodbav:"description"`
	URL         string `dynamodbav:"url"`
}

// Store keeps bookmarks in a DynamoDB table keyed by id.
type Store struct {
	region    string
	endpoint  string
	tableName string
	hashKey   string
	api       dynamodbiface.DynamoDBAPI
}

// New creates a Store for tableName.
func New(tableName string, opts ...Option) (*Store, error) {
	store := &Store{
		region:    DefaultRegion,
		tableName: tableName,
		hashKey:   DefaultHashKey,
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.api == nil {
		cfg := &aws.Config{Region: aws.String(store.region)}
		if store.endpoint != "" {
			cfg.Endpoint = aws.String(store.endpoint)
		}
		sess, err := session.NewSession(cfg)
		if err != nil {
			return nil, wrap(err, "unable to create AWS session")
		}
		store.api = dynamodb.New(sess)
	}

	return store, nil
}

// Put writes bookmark, replacing any item with the same hash key.
func (s *Store) Put(ctx context.Context, bookmark *domain.Bookmark) error {
	av, err := dynamodbattribute.MarshalMap(s.toItem(bookmark))
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}
	if s.hashKey != DefaultHashKey {
		av[s.hashKey] = av[DefaultHashKey]
		delete(av, DefaultHashKey)
	}

	_, err = s.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return wrap(err, "put failed for "+bookmark.ID)
	}
	return nil
}

// Delete removes the item for id. Deleting a missing item succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.api.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(id),
	})
	if err != nil {
		return wrap(err, "delete failed for "+id)
	}
	return nil
}

// Get retrieves a bookmark by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Bookmark, error) {
	out, err := s.api.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, wrap(err, "get failed for "+id)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if s.hashKey != DefaultHashKey {
		out.Item[DefaultHashKey] = out.Item[s.hashKey]
	}

	var it item
	if err := dynamodbattribute.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}

	return &domain.Bookmark{ID: it.ID, Name: it.Name, Description: it.Description, URL: it.URL}, nil
}

// Ping checks that the table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		return wrap(err, "describe table failed")
	}
	return nil
}

func (s *Store) key(id string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		s.hashKey: {S: aws.String(id)},
	}
}

func (s *Store) toItem(b *domain.Bookmark) item {
	return item{ID: b.ID, Name: b.Name, Description: b.Description, URL: b.URL}
}

func wrap(err error, msg string) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return fmt.Errorf("%s. %v [%v]: %w", msg, aerr.Message(), aerr.Code(), err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
