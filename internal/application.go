package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rocketscienceinc/oxroom-backend/internal/config"
	"github.com/rocketscienceinc/oxroom-backend/internal/repository"
	"github.com/rocketscienceinc/oxroom-backend/internal/repository/storage"
	"github.com/rocketscienceinc/oxroom-backend/internal/service"
	"github.com/rocketscienceinc/oxroom-backend/internal/tictactoe"
	"github.com/rocketscienceinc/oxroom-backend/internal/transport/rest"
	"github.com/rocketscienceinc/oxroom-backend/internal/transport/websocket"
	"github.com/rocketscienceinc/oxroom-backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	location, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return fmt.Errorf("could not load timezone: %w", err)
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := openAccounts(ctx, conf.SQLiteStoragePath)
	if err != nil {
		return err
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	roomRepo := repository.NewRoomRepository(redisStorage)
	accountRepo := repository.NewAccountRepository(sqliteStorage.Connection)

	saver := usecase.NewRoomSaver(logger, roomRepo, conf.Persistence.MaxRetries, conf.Persistence.InitialInterval)
	saver.Start()
	defer saver.Close()

	directory := usecase.NewRoomDirectory(logger, roomRepo, saver)
	if err = directory.Load(ctx); err != nil {
		return fmt.Errorf("could not load rooms: %w", err)
	}

	hub := websocket.NewHub(logger)
	presence := service.NewPresenceTracker(logger, accountRepo)
	authService := service.NewAuthService(conf.JWTSecretKey)

	gameUseCase := usecase.NewGameUseCase(logger, directory, accountRepo, hub, tictactoe.RandomPicker)
	chatUseCase := usecase.NewChatUseCase(logger, directory, presence, hub, location)
	lobbyUseCase := usecase.NewLobbyUseCase(logger, directory, accountRepo, hub, location)
	accountUseCase := usecase.NewAccountUseCase(logger, accountRepo)

	wsServer := websocket.New(logger, hub, gameUseCase, chatUseCase, directory, websocket.Options{
		WriteWait:  conf.Websocket.WriteWait,
		PongWait:   conf.Websocket.PongWait,
		SendBuffer: conf.Websocket.SendBuffer,
		ReadLimit:  conf.Websocket.ReadLimit,
	})

	handlers := rest.NewHandlers(logger, accountUseCase, lobbyUseCase, authService)
	router := rest.NewRouter(logger, handlers, authService, wsServer)
	httpServer := rest.NewServer(logger, conf.HTTPPort, router)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := httpServer.Start(); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Received signal, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("could not shutdown HTTP server", "error", err)
	}

	return nil
}

func openAccounts(ctx context.Context, path string) (*storage.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("could not create sqlite directory: %w", err)
	}

	sqliteStorage, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite storage: %w", err)
	}

	if err = sqliteStorage.Init(ctx); err != nil {
		_ = sqliteStorage.Close()
		return nil, fmt.Errorf("could not init sqlite storage: %w", err)
	}

	return sqliteStorage, nil
}
