package cloud

import (
	"context"
	"testing"

	"github.com/qrewards/qrewards/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestLoadConfigStaticCredentials(t *testing.T) {
	awsCfg, err := LoadConfig(context.Background(), config.AWSConfig{
		Region:          "ap-southeast-1",
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
		Endpoint:        "http://localhost:4566",
	})
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if awsCfg.Region != "ap-southeast-1" {
		t.Fatalf("unexpected region: %s", awsCfg.Region)
	}
	if aws.ToString(awsCfg.BaseEndpoint) != "http://localhost:4566" {
		t.Fatalf("unexpected endpoint: %v", awsCfg.BaseEndpoint)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials failed: %v", err)
	}
	if creds.AccessKeyID != "AKIDTEST" {
		t.Fatalf("static credentials not applied: %s", creds.AccessKeyID)
	}
	if NewS3Client(awsCfg) == nil || NewSNSClient(awsCfg) == nil || NewDynamoDBClient(awsCfg) == nil {
		t.Fatalf("clients should be constructed")
	}
}
