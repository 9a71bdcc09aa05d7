package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skalibog/genetrader/pkg/logger"
	"go.uber.org/zap"
)

// Server отдает /metrics для Prometheus и /status с последним поколением
type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(addr string, rec *Recorder) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{})))
	e.GET("/status", func(c echo.Context) error {
		last := rec.Last()
		if last == nil {
			return c.JSON(http.StatusAccepted, map[string]string{"status": "starting"})
		}
		return c.JSON(http.StatusOK, last)
	})

	return &Server{echo: e, addr: addr}
}

// Start запускает сервер в фоне
func (s *Server) Start() {
	go func() {
		logger.Info("HTTP сервер метрик запущен", zap.String("addr", s.addr))
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка HTTP сервера метрик", zap.Error(err))
		}
	}()
}

// Stop корректно останавливает сервер
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Handler для тестов и встраивания
func (s *Server) Handler() http.Handler {
	return s.echo
}
