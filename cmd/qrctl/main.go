package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/provider"
	"github.com/qrewards/qrewards/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	timeout    time.Duration
	verbose    bool
)

// cliOperator 审计日志中 CLI 操作的操作人
var cliOperator = service.Operator{Username: "qrctl"}

// rootCmd qrctl 运维命令入口
var rootCmd = &cobra.Command{
	Use:   "qrctl",
	Short: "QRewards operations CLI",
	Long: `qrctl shares config.yml with the API server and talks to the same
database, counter backend and notification channels.

Available commands:
  check  - Connectivity checks for db, redis, smtp, sms and s3
  card   - Create and inspect reward cards
  claim  - Run a claim in-process
  seed   - Create a default admin and demo cards`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./config.yml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stdout")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env 一次命令执行所需的运行环境
type env struct {
	cfg       *config.Config
	container *provider.Container
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(viper.New(), configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	opts := cfg.Log.ToLoggerOptions()
	opts.Stdout = verbose
	if !verbose {
		opts.Level = "warn"
	}
	logger.Init(cfg.Server.Mode, opts)
	return cfg, nil
}

// openDB 按配置打开数据库并迁移
func openDB(cfg *config.Config) error {
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// setup 加载配置、数据库和依赖容器
func setup() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := openDB(cfg); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, container: provider.NewContainer(cfg)}, nil
}

func (e *env) Close() {
	e.container.Close()
	if models.DB == nil {
		return
	}
	if sqlDB, err := models.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
