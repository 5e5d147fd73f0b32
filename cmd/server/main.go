package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/qrewards/qrewards/internal/app"
	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiBlue      = "\033[34m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	var (
		mode       string
		configFile string
	)
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.StringVar(&configFile, "config", "", "配置文件路径，默认查找 ./config.yml")
	flag.Parse()

	mode, err := app.ParseMode(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	printStartupBanner()

	cfg, err := config.LoadFrom(viper.GetViper(), configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置解析失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	release := cfg.Server.Mode == "release"

	if isWeakSecret(cfg.JWT.SecretKey) {
		if release {
			stdLog.Fatalf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
		stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	if err := prepareDatabase(cfg); err != nil {
		stdLog.Fatalf("%v", err)
	}
	ensureDefaultAdmin(stdLog, release)

	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// prepareDatabase 连接数据库并迁移表结构，worker 模式同样需要
func prepareDatabase(cfg *config.Config) error {
	pool := cfg.Database.Pool
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           pool.MaxOpenConns,
		MaxIdleConns:           pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// ensureDefaultAdmin 首次启动创建超级管理员，release 下必须显式给出密码
func ensureDefaultAdmin(stdLog *log.Logger, release bool) {
	username := os.Getenv("QR_DEFAULT_ADMIN_USERNAME")
	password := os.Getenv("QR_DEFAULT_ADMIN_PASSWORD")
	if release && password == "" {
		stdLog.Printf("警告: 未设置 QR_DEFAULT_ADMIN_PASSWORD，已跳过默认管理员初始化")
		return
	}
	if err := models.InitDefaultAdmin(username, password); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║                 🎟  QRewards API 启动中                  ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + " ██████╗ ██████╗ ███████╗██╗    ██╗ █████╗ ██████╗ ██████╗ ███████╗" + ansiReset)
	fmt.Println(ansiCyan + "██╔═══██╗██╔══██╗██╔════╝██║    ██║██╔══██╗██╔══██╗██╔══██╗██╔════╝" + ansiReset)
	fmt.Println(ansiCyan + "██║   ██║██████╔╝█████╗  ██║ █╗ ██║███████║██████╔╝██║  ██║███████╗" + ansiReset)
	fmt.Println(ansiCyan + "██║▄▄ ██║██╔══██╗██╔══╝  ██║███╗██║██╔══██║██╔══██╗██║  ██║╚════██║" + ansiReset)
	fmt.Println(ansiCyan + "╚██████╔╝██║  ██║███████╗╚███╔███╔╝██║  ██║██║  ██║██████╔╝███████║" + ansiReset)
	fmt.Println(ansiCyan + " ╚══▀▀═╝ ╚═╝  ╚═╝╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚══════╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "Modes" + ansiReset)
	fmt.Println(ansiBlue + "• all:     API + 通知 worker" + ansiReset)
	fmt.Println(ansiBlue + "• api:     仅 HTTP 接口" + ansiReset)
	fmt.Println(ansiBlue + "• worker:  仅通知投递" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
