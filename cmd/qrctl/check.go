package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qrewards/qrewards/internal/cache"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/i18n"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/spf13/cobra"
)

var (
	checkTo     string
	checkLocale string
)

// checkCmd 依赖连通性检查
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity of external dependencies",
}

var checkDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Open the database, run migrations and ping it",
	RunE:  runCheckDB,
}

var checkRedisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Ping the configured redis instance",
	RunE:  runCheckRedis,
}

var checkSMTPCmd = &cobra.Command{
	Use:   "smtp",
	Short: "Send a test email with the configured SMTP server",
	RunE:  runCheckSMTP,
}

var checkSMSCmd = &cobra.Command{
	Use:   "sms",
	Short: "Send a test SMS through AWS SNS",
	RunE:  runCheckSMS,
}

var checkS3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Verify the configured object storage is writable",
	RunE:  runCheckS3,
}

func init() {
	for _, cmd := range []*cobra.Command{checkSMTPCmd, checkSMSCmd} {
		cmd.Flags().StringVar(&checkTo, "to", "", "Recipient (email address or E.164 phone)")
		cmd.Flags().StringVar(&checkLocale, "locale", i18n.LocaleEN, "Message locale")
		_ = cmd.MarkFlagRequired("to")
	}
	checkCmd.AddCommand(checkDBCmd)
	checkCmd.AddCommand(checkRedisCmd)
	checkCmd.AddCommand(checkSMTPCmd)
	checkCmd.AddCommand(checkSMSCmd)
	checkCmd.AddCommand(checkS3Cmd)
}

func runCheckDB(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := openDB(cfg); err != nil {
		return err
	}
	sqlDB, err := models.DB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "db ok (driver=%s)\n", cfg.Database.Driver)
	return nil
}

func runCheckRedis(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Redis.Enabled {
		return errors.New("redis.enabled is false")
	}
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		return err
	}
	defer cache.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "redis ok (%s:%d db=%d)\n", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
	return nil
}

func runCheckSMTP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	email := service.NewEmailService(&cfg.Email)
	if err := email.SendTestEmail(strings.TrimSpace(checkTo), checkLocale); err != nil {
		return fmt.Errorf("send test email: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "smtp ok (%s:%d -> %s)\n", cfg.Email.Host, cfg.Email.Port, checkTo)
	return nil
}

func runCheckSMS(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := e.container.SMSService.SendTestSMS(ctx, strings.TrimSpace(checkTo), checkLocale); err != nil {
		return fmt.Errorf("send test sms: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sms ok (region=%s -> %s)\n", e.cfg.AWS.Region, checkTo)
	return nil
}

func runCheckS3(cmd *cobra.Command, _ []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	store := e.container.Storage
	if store.Driver() != constants.StorageDriverS3 {
		fmt.Fprintf(cmd.ErrOrStderr(), "storage.driver is %q, checking it instead of s3\n", store.Driver())
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	if err := store.Check(ctx); err != nil {
		return fmt.Errorf("check storage: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "storage ok (driver=%s)\n", store.Driver())
	return nil
}
