package service

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/i18n"
)

const smtpDialTimeout = 10 * time.Second

// EmailService 邮件发送服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// ClaimMessage 领取通知内容
type ClaimMessage struct {
	ClaimNo      string
	BusinessName string
	Header       string
	Subheader    string
	Address      string
	Locale       string
}

// SendClaimNotification 发送领取成功邮件
func (s *EmailService) SendClaimNotification(toEmail string, msg ClaimMessage) error {
	subject, body := buildClaimEmailContent(msg)
	return s.sendTextEmail(toEmail, subject, body)
}

// SendTestEmail 发送 SMTP 测试邮件
func (s *EmailService) SendTestEmail(toEmail, locale string) error {
	locale = i18n.Normalize(locale)
	return s.sendTextEmail(toEmail, i18n.T(locale, "smtp.test.subject"), i18n.T(locale, "smtp.test.body"))
}

// Enabled 邮件渠道是否可用
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled
}

func (s *EmailService) sendTextEmail(toEmail, subject, body string) error {
	if !s.Enabled() {
		return ErrEmailServiceDisabled
	}
	cfg := s.cfg
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	rcpt, err := mail.ParseAddress(toEmail)
	if err != nil {
		return ErrInvalidEmail
	}

	msg := composeEmail(cfg.From, cfg.FromName, rcpt.Address, subject, body)
	return classifySMTPError(deliver(cfg, rcpt.Address, msg))
}

func buildClaimEmailContent(msg ClaimMessage) (string, string) {
	locale := i18n.Normalize(msg.Locale)
	business := strings.TrimSpace(msg.BusinessName)
	if business == "" {
		business = "QRewards"
	}
	subject := i18n.Sprintf(locale, "claim.email.subject", msg.Header)
	address := strings.TrimSpace(msg.Address)
	if address == "" {
		address = "-"
	}
	body := i18n.Sprintf(locale, "claim.email.body", business, msg.Header, msg.Subheader, address, msg.ClaimNo)
	return subject, body
}

// composeEmail 纯文本邮件，主题与发件人名称按 RFC 2047 编码
func composeEmail(from, fromName, to, subject, body string) []byte {
	sender := from
	if name := strings.TrimSpace(fromName); name != "" {
		sender = (&mail.Address{Name: name, Address: from}).String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sender)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// dialSMTP use_ssl 为隐式 TLS（465），use_tls 为明文连接后 STARTTLS（587）
func dialSMTP(cfg *config.EmailConfig) (*smtp.Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	var (
		conn net.Conn
		err  error
	)
	if cfg.UseSSL {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.UseTLS && !cfg.UseSSL {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

func deliver(cfg *config.EmailConfig, to string, msg []byte) error {
	client, err := dialSMTP(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.Username != "" || cfg.Password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
				return err
			}
		}
	}
	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// 收件人不存在类的永久错误，重试没有意义
var recipientRejectedHints = []string{
	"no such user",
	"no such recipient",
	"recipient address rejected",
	"user unknown",
	"unknown user",
	"mailbox unavailable",
}

// classifySMTPError 把收件人被拒映射为 ErrEmailRecipientRejected，其余原样返回
func classifySMTPError(err error) error {
	if err == nil {
		return nil
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 550, 551, 553:
			return fmt.Errorf("%w: %s", ErrEmailRecipientRejected, protoErr.Msg)
		}
		return err
	}
	message := strings.ToLower(err.Error())
	for _, hint := range recipientRejectedHints {
		if strings.Contains(message, hint) {
			return fmt.Errorf("%w: %v", ErrEmailRecipientRejected, err)
		}
	}
	return err
}
