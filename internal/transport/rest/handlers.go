package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

type Handlers interface {
	Ping(c *gin.Context)
	Login(c *gin.Context)

	ListRooms(c *gin.Context)
	GetRoom(c *gin.Context)
	CreateRoom(c *gin.Context)
	EnterRoom(c *gin.Context)
	ExitRoom(c *gin.Context)
}

type accountUseCase interface {
	LoginOrRegister(ctx context.Context, name, password string) (*entity.Account, error)
}

type lobbyUseCase interface {
	ListRooms() []*entity.Room
	GetRoom(roomID int) (*entity.Room, error)
	CreateRoom(ctx context.Context, userID int, name string, maxMembers int) (*entity.Room, error)
	EnterRoom(ctx context.Context, userID, roomID int) (*entity.Room, error)
	ExitRoom(ctx context.Context, userID, roomID int) error
}

type loginRequest struct {
	Name     string `json:"name"     binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Account *entity.Account `json:"account"`
}

type createRoomRequest struct {
	Name       string `json:"name"       binding:"required"`
	MaxMembers int    `json:"maxMembers" binding:"min=0"`
}

type handlers struct {
	logger   *slog.Logger
	accounts accountUseCase
	lobby    lobbyUseCase
	auth     authService
}

func NewHandlers(logger *slog.Logger, accounts accountUseCase, lobby lobbyUseCase, auth authService) Handlers {
	return &handlers{
		logger:   logger.With("component", "rest"),
		accounts: accounts,
		lobby:    lobby,
		auth:     auth,
	}
}

func (that *handlers) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (that *handlers) Login(c *gin.Context) {
	log := that.logger.With("method", "Login")

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and password are required"})
		return
	}

	account, err := that.accounts.LoginOrRegister(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		that.fail(c, log, err)
		return
	}

	token, err := that.auth.GenerateToken(account.ID)
	if err != nil {
		that.fail(c, log, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: token, Account: account})
}

func (that *handlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": that.lobby.ListRooms()})
}

func (that *handlers) GetRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	room, err := that.lobby.GetRoom(roomID)
	if err != nil {
		that.fail(c, that.logger.With("method", "GetRoom"), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (that *handlers) CreateRoom(c *gin.Context) {
	log := that.logger.With("method", "CreateRoom")

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room name is required"})
		return
	}

	room, err := that.lobby.CreateRoom(c.Request.Context(), currentAccount(c), req.Name, req.MaxMembers)
	if err != nil {
		that.fail(c, log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (that *handlers) EnterRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	room, err := that.lobby.EnterRoom(c.Request.Context(), currentAccount(c), roomID)
	if err != nil {
		that.fail(c, that.logger.With("method", "EnterRoom"), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (that *handlers) ExitRoom(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	if err := that.lobby.ExitRoom(c.Request.Context(), currentAccount(c), roomID); err != nil {
		that.fail(c, that.logger.With("method", "ExitRoom"), err)
		return
	}

	c.Status(http.StatusNoContent)
}

func roomParam(c *gin.Context) (int, bool) {
	roomID, err := strconv.Atoi(c.Param("id"))
	if err != nil || roomID <= entity.LobbyRoomID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}

	return roomID, true
}

func (that *handlers) fail(c *gin.Context, log *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	log.Debug("request rejected", "status", status, "error", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound), errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrRoomFull), errors.Is(err, apperror.ErrAlreadyInRoom), errors.Is(err, apperror.ErrNotInRoom):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrWrongPassword), errors.Is(err, apperror.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrInvalidPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
