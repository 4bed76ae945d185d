package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConcurrentCommit is returned when another writer committed the same
// version first.
var ErrConcurrentCommit = errors.New("s3: concurrent commit detected")

// ErrNoCommit is returned when a collection has no committed index yet.
var ErrNoCommit = errors.New("s3: no committed index")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore publishes the "current index" pointer of a descriptor
// collection through DynamoDB conditional writes. S3 alone offers no
// compare-and-swap, so the pointer lives in a DynamoDB table:
//
//   - partition key: collection (string)
//   - sort key: version (number, monotonically increasing)
//
// Each commit writes the blob name of the freshly uploaded index under the
// next version; readers resolve the highest version. Concurrent committers
// race on the conditional write and exactly one wins.
type CommitStore struct {
	ddb        DDBClient
	tableName  string
	collection string
}

// NewCommitStore creates a commit store for one descriptor collection.
func NewCommitStore(ddb DDBClient, tableName, collection string) *CommitStore {
	return &CommitStore{
		ddb:        ddb,
		tableName:  tableName,
		collection: collection,
	}
}

// Commit records name as the current index under the next version number.
// Returns the committed version, or ErrConcurrentCommit if another writer
// claimed it first.
func (c *CommitStore) Commit(ctx context.Context, name string) (int64, error) {
	_, version, err := c.Current(ctx)
	if err != nil && !errors.Is(err, ErrNoCommit) {
		return 0, err
	}
	next := version + 1

	_, err = c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: c.collection},
			"version":    &types.AttributeValueMemberN{Value: strconv.FormatInt(next, 10)},
			"name":       &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, fmt.Errorf("%w: version %d", ErrConcurrentCommit, next)
		}
		return 0, err
	}
	return next, nil
}

// Current resolves the most recently committed index blob name and version.
func (c *CommitStore) Current(ctx context.Context) (string, int64, error) {
	out, err := c.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#c": "collection",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: c.collection},
		},
		ScanIndexForward: aws.Bool(false), // newest version first
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return "", 0, err
	}
	if len(out.Items) == 0 {
		return "", 0, fmt.Errorf("%w: collection %s", ErrNoCommit, c.collection)
	}

	item := out.Items[0]
	nameAttr, ok := item["name"].(*types.AttributeValueMemberS)
	if !ok {
		return "", 0, fmt.Errorf("s3: malformed commit record for collection %s", c.collection)
	}
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return "", 0, fmt.Errorf("s3: malformed commit record for collection %s", c.collection)
	}
	version, err := strconv.ParseInt(versionAttr.Value, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("s3: malformed commit version: %w", err)
	}
	return nameAttr.Value, version, nil
}
