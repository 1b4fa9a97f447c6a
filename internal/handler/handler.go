package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aasquery/backend/internal/auth"
	"aasquery/backend/internal/history"
	"aasquery/backend/internal/service"
)

type Handler struct {
	tokens  auth.TokenProvider
	engine  service.QueryEngine
	history history.Recorder
	now     func() time.Time
}

// New builds the handler set. recorder may be nil, which disables query history.
func New(tokens auth.TokenProvider, engine service.QueryEngine, recorder history.Recorder) *Handler {
	return &Handler{
		tokens:  tokens,
		engine:  engine,
		history: recorder,
		now:     time.Now,
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ping", Ping)
	r.POST("/query", h.QueryHandler)
	r.GET("/history", h.HistoryHandler)
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
