package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI 计数存储用到的 DynamoDB 接口子集
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// counterItem DynamoDB 中的计数项，card_id 为分区键
type counterItem struct {
	CardID      uint  `dynamodbav:"card_id"`
	Quantity    int   `dynamodbav:"quantity"`
	ExpiresAtMS int64 `dynamodbav:"expires_at_ms,omitempty"`
}

// DynamoDBStore 以 UpdateItem 条件表达式完成条件递减
type DynamoDBStore struct {
	client      DynamoDBAPI
	table       string
	checkExpiry bool
}

// NewDynamoDBStore 创建 DynamoDB 计数存储
func NewDynamoDBStore(client DynamoDBAPI, table string, opts Options) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: strings.TrimSpace(table), checkExpiry: opts.CheckExpiry}
}

// Backend 后端名称
func (s *DynamoDBStore) Backend() string {
	return constants.CounterBackendDynamoDB
}

func (s *DynamoDBStore) key(cardID uint) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"card_id": &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(cardID), 10)},
	}
}

func numberValue(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

// Init 条件写入初始计数，已存在时保持原值
func (s *DynamoDBStore) Init(ctx context.Context, cardID uint, quantity int, expiresAt *time.Time) error {
	if quantity < 0 {
		return fmt.Errorf("invalid initial quantity %d", quantity)
	}
	item, err := attributevalue.MarshalMap(counterItem{
		CardID:      cardID,
		Quantity:    quantity,
		ExpiresAtMS: expiryMillis(expiresAt),
	})
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(card_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}

// TryDecrement 条件不满足时通过 ALL_OLD 返回的旧值区分原因，不再额外读取
func (s *DynamoDBStore) TryDecrement(ctx context.Context, cardID uint, now time.Time) (int, error) {
	nowMS := now.UTC().UnixMilli()
	condition := "attribute_exists(card_id) AND quantity > :zero"
	values := map[string]types.AttributeValue{
		":one":  numberValue(1),
		":zero": numberValue(0),
	}
	if s.checkExpiry {
		condition += " AND (attribute_not_exists(expires_at_ms) OR expires_at_ms >= :now)"
		values[":now"] = numberValue(nowMS)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.table),
		Key:                                 s.key(cardID),
		UpdateExpression:                    aws.String("SET quantity = quantity - :one"),
		ConditionExpression:                 aws.String(condition),
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueUpdatedNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, s.classify(cardID, ccf.Item, nowMS)
		}
		return 0, err
	}

	var updated counterItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, nil
	}
	return updated.Quantity, nil
}

func (s *DynamoDBStore) classify(cardID uint, old map[string]types.AttributeValue, nowMS int64) error {
	if len(old) == 0 {
		return ErrNotFound
	}
	var item counterItem
	if err := attributevalue.UnmarshalMap(old, &item); err != nil {
		return fmt.Errorf("decode counter item %d: %w", cardID, err)
	}
	if s.checkExpiry && item.ExpiresAtMS > 0 && nowMS > item.ExpiresAtMS {
		return ErrExpired
	}
	if item.Quantity <= 0 {
		return ErrExhausted
	}
	return fmt.Errorf("conditional decrement rejected for card %d without matching cause", cardID)
}

// Remaining 强一致读取剩余数量
func (s *DynamoDBStore) Remaining(ctx context.Context, cardID uint) (int, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.table),
		Key:                  s.key(cardID),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("card_id, quantity"),
	})
	if err != nil {
		return 0, err
	}
	if len(out.Item) == 0 {
		return 0, ErrNotFound
	}
	var item counterItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, err
	}
	return item.Quantity, nil
}

// SetExpiry 更新或移除过期时间，计数不存在时忽略
func (s *DynamoDBStore) SetExpiry(ctx context.Context, cardID uint, expiresAt *time.Time) error {
	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(cardID),
		ConditionExpression: aws.String("attribute_exists(card_id)"),
	}
	if ms := expiryMillis(expiresAt); ms > 0 {
		input.UpdateExpression = aws.String("SET expires_at_ms = :exp")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{":exp": numberValue(ms)}
	} else {
		input.UpdateExpression = aws.String("REMOVE expires_at_ms")
	}
	_, err := s.client.UpdateItem(ctx, input)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}

// Remove 删除计数
func (s *DynamoDBStore) Remove(ctx context.Context, cardID uint) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(cardID),
	})
	return err
}
