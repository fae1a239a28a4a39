package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler interface {
	CreateSession(c *gin.Context)
	EndSession(c *gin.Context)
}

type handler struct {
	service Service
}

func NewHandler(service Service) Handler {
	return &handler{service: service}
}

type createSessionRequest struct {
	Username string `json:"username"`
}

func (h *handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, user, err := h.service.CreateSessionAndUser(
		c.Request.Context(), req.Username, c.GetHeader("User-Agent"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_key": session.SessionKey,
		"user_id":     user.ID,
		"username":    user.Username,
		"created_at":  session.CreatedAt,
	})
}

func (h *handler) EndSession(c *gin.Context) {
	key := c.GetHeader("X-Session-Key")
	if key == "" {
		key = c.Query("session_key")
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_key is required"})
		return
	}
	if err := h.service.EndSession(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
