// Package cloud 构建 AWS SDK 客户端，S3、SNS 与 DynamoDB 共用一份凭证与区域配置。
package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/qrewards/qrewards/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// LoadConfig 加载 AWS 配置
// 配置了静态密钥时优先使用，否则走默认凭证链（环境变量、共享配置、实例角色）
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	key := strings.TrimSpace(cfg.AccessKeyID)
	secret := strings.TrimSpace(cfg.SecretAccessKey)
	if key != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}
	return awsCfg, nil
}

// NewS3Client 创建 S3 客户端，自定义 endpoint 时使用 path-style 访问
func NewS3Client(awsCfg aws.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if awsCfg.BaseEndpoint != nil {
			o.UsePathStyle = true
		}
	})
}

// NewSNSClient 创建 SNS 客户端
func NewSNSClient(awsCfg aws.Config) *sns.Client {
	return sns.NewFromConfig(awsCfg)
}

// NewDynamoDBClient 创建 DynamoDB 客户端
func NewDynamoDBClient(awsCfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg)
}
