package dynamo

import (
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// Option configures a Store.
type Option func(*Store)

// WithRegion specifies the AWS region to connect to.
func WithRegion(region string) Option {
	return func(s *Store) {
		s.region = region
	}
}

// WithEndpoint points the client at a DynamoDB-compatible endpoint such as
// DynamoDB Local.
func WithEndpoint(endpoint string) Option {
	return func(s *Store) {
		s.endpoint = endpoint
	}
}

// WithHashKey overrides the attribute used as the table hash key.
func WithHashKey(hashKey string) Option {
	return func(s *Store) {
		s.hashKey = hashKey
	}
}

// WithDynamoDB supplies a pre-configured client.
func WithDynamoDB(api dynamodbiface.DynamoDBAPI) Option {
	return func(s *Store) {
		s.api = api
	}
}
