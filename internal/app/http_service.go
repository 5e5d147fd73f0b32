package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/qrewards/qrewards/internal/logger"
)

const (
	httpReadHeaderTimeout = 5 * time.Second
	httpReadTimeout       = 15 * time.Second
	// 二维码与 CSV 导出可能较慢
	httpWriteTimeout = 60 * time.Second
	httpIdleTimeout  = 90 * time.Second
)

// HTTPService 对外 API 服务
type HTTPService struct {
	server *http.Server
}

func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{server: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       httpReadTimeout,
		WriteTimeout:      httpWriteTimeout,
		IdleTimeout:       httpIdleTimeout,
	}}
}

func (s *HTTPService) Name() string { return "http" }

// Start 先完成监听再进入 Serve，端口占用能立即返回错误
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	logger.Infow("http_listening", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
