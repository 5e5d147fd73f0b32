package counter

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

// fakeDynamo 按本包发出的请求形态模拟 DynamoDB 的条件写语义
type fakeDynamo struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	err      error
	requests []*dynamodb.UpdateItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["card_id"].(*types.AttributeValueMemberN).Value
}

func numOf(item map[string]types.AttributeValue, name string) (int64, bool) {
	v, ok := item[name]
	if !ok {
		return 0, false
	}
	n, _ := strconv.ParseInt(v.(*types.AttributeValueMemberN).Value, 10, 64)
	return n, true
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: copyItem(f.items[keyOf(in.Key)])}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	k := keyOf(in.Item)
	if aws.ToString(in.ConditionExpression) == "attribute_not_exists(card_id)" {
		if _, exists := f.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	}
	f.items[k] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, in)
	k := keyOf(in.Key)
	item, exists := f.items[k]
	fail := func() (*dynamodb.UpdateItemOutput, error) {
		ex := &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		if in.ReturnValuesOnConditionCheckFailure == types.ReturnValuesOnConditionCheckFailureAllOld {
			ex.Item = copyItem(item)
		}
		return nil, ex
	}
	if !exists {
		return fail()
	}

	expr := aws.ToString(in.UpdateExpression)
	switch {
	case strings.HasPrefix(expr, "SET quantity = quantity - :one"):
		q, _ := numOf(item, "quantity")
		if q <= 0 {
			return fail()
		}
		if nowAttr, ok := in.ExpressionAttributeValues[":now"]; ok {
			now, _ := strconv.ParseInt(nowAttr.(*types.AttributeValueMemberN).Value, 10, 64)
			if exp, has := numOf(item, "expires_at_ms"); has && exp < now {
				return fail()
			}
		}
		item["quantity"] = numberValue(q - 1)
		return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"quantity": numberValue(q - 1)}}, nil
	case strings.HasPrefix(expr, "SET expires_at_ms"):
		item["expires_at_ms"] = in.ExpressionAttributeValues[":exp"]
	case strings.HasPrefix(expr, "REMOVE expires_at_ms"):
		delete(item, "expires_at_ms")
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func newDynamoCounter(t *testing.T, quantity int, expiresAt *time.Time, checkExpiry bool) (Store, uint) {
	store := NewDynamoDBStore(newFakeDynamo(), "counters", Options{CheckExpiry: checkExpiry})
	const cardID uint = 9
	require.NoError(t, store.Init(context.Background(), cardID, quantity, expiresAt))
	return store, cardID
}

func TestDynamoDBStoreContract(t *testing.T) {
	runStoreContract(t, newDynamoCounter)
}

func TestDynamoDBStoreRequestShape(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoDBStore(fake, "counters", Options{CheckExpiry: true})
	require.NoError(t, store.Init(context.Background(), 1, 1, nil))
	_, err := store.TryDecrement(context.Background(), 1, time.Now())
	require.NoError(t, err)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	require.Equal(t, "counters", aws.ToString(req.TableName))
	require.Contains(t, aws.ToString(req.ConditionExpression), "quantity > :zero")
	require.Contains(t, aws.ToString(req.ConditionExpression), "expires_at_ms >= :now")
	require.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, req.ReturnValuesOnConditionCheckFailure)
}

func TestDynamoDBStoreInitKeepsExisting(t *testing.T) {
	store, id := newDynamoCounter(t, 3, nil, true)
	ctx := context.Background()
	_, err := store.TryDecrement(ctx, id, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx, id, 3, nil))
	remaining, err := store.Remaining(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, remaining)
}

func TestDynamoDBStoreSetExpiry(t *testing.T) {
	store, id := newDynamoCounter(t, 3, nil, true)
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.SetExpiry(ctx, id, &past))
	_, err := store.TryDecrement(ctx, id, time.Now())
	require.ErrorIs(t, err, ErrExpired)

	require.NoError(t, store.SetExpiry(ctx, id, nil))
	_, err = store.TryDecrement(ctx, id, time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, id))
	require.NoError(t, store.SetExpiry(ctx, id, &past))
}

func TestDynamoDBStoreUnavailable(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoDBStore(fake, "counters", Options{CheckExpiry: true})
	require.NoError(t, store.Init(context.Background(), 1, 1, nil))
	fake.err = errors.New("operation error DynamoDB: UpdateItem, https response error StatusCode: 500")

	_, err := store.TryDecrement(context.Background(), 1, time.Now())
	require.Error(t, err)
	require.False(t, IsOutcome(err))
}
