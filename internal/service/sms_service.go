package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/i18n"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// e164Pattern 国际格式手机号：+ 开头，首位非 0，共 7-15 位数字
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// SNSPublisher SNS 发布接口（便于测试替换）
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSService 短信发送服务（AWS SNS 直发手机号）
type SMSService struct {
	cfg    *config.SMSConfig
	client SNSPublisher
}

// NewSMSService 创建短信服务，client 为 nil 时视为未配置
func NewSMSService(cfg *config.SMSConfig, client SNSPublisher) *SMSService {
	return &SMSService{cfg: cfg, client: client}
}

// Enabled 短信渠道是否可用
func (s *SMSService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled
}

// SendClaimNotification 发送领取成功短信
func (s *SMSService) SendClaimNotification(ctx context.Context, phone string, msg ClaimMessage) error {
	return s.send(ctx, phone, buildClaimSMSContent(msg))
}

// SendTestSMS 发送测试短信
func (s *SMSService) SendTestSMS(ctx context.Context, phone, locale string) error {
	return s.send(ctx, phone, i18n.T(i18n.Normalize(locale), "sms.test.body"))
}

func (s *SMSService) send(ctx context.Context, phone, body string) error {
	if !s.Enabled() {
		return ErrSMSServiceDisabled
	}
	if s.client == nil {
		return ErrSMSServiceNotConfigured
	}
	phone = strings.TrimSpace(phone)
	if !e164Pattern.MatchString(phone) {
		return ErrInvalidPhone
	}

	attrs := map[string]snstypes.MessageAttributeValue{}
	if smsType := strings.TrimSpace(s.cfg.SMSType); smsType != "" {
		attrs["AWS.SNS.SMS.SMSType"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(smsType),
		}
	}
	if senderID := strings.TrimSpace(s.cfg.SenderID); senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(senderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(truncateRunes(body, s.cfg.MaxLength)),
		MessageAttributes: attrs,
	})
	return err
}

func buildClaimSMSContent(msg ClaimMessage) string {
	locale := i18n.Normalize(msg.Locale)
	business := strings.TrimSpace(msg.BusinessName)
	if business == "" {
		business = "QRewards"
	}
	return i18n.Sprintf(locale, "claim.sms.body", business, msg.Header, msg.ClaimNo)
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
