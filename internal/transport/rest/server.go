package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

// NewRouter mounts the lobby API and the realtime gateway on one engine.
func NewRouter(logger *slog.Logger, handlers Handlers, auth authService, realtime http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/ping", handlers.Ping)
	router.POST("/login", handlers.Login)
	router.GET("/ws", gin.WrapH(realtime))

	rooms := router.Group("/rooms", authRequired(auth))
	rooms.GET("", handlers.ListRooms)
	rooms.POST("", handlers.CreateRoom)
	rooms.GET("/:id", handlers.GetRoom)
	rooms.POST("/:id/enter", handlers.EnterRoom)
	rooms.POST("/:id/exit", handlers.ExitRoom)

	return router
}

func NewServer(logger *slog.Logger, port string, handler http.Handler) *Server {
	return &Server{
		logger: logger.With("component", "http server"),
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (that *Server) Start() error {
	that.logger.Info("listening", "addr", that.srv.Addr)

	if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if err := that.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	log := logger.With("component", "rest")

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
