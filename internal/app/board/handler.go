package board

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler interface {
	CreateBoard(c *gin.Context)
	GetBoard(c *gin.Context)
	ListOwnBoards(c *gin.Context)
	DeleteBoard(c *gin.Context)
}

type handler struct {
	service Service
}

func NewHandler(service Service) Handler {
	return &handler{service: service}
}

// @Summary Create a board
// @Description Create an empty board owned by the session's user
// @Tags Board
// @Accept json
// @Produce json
// @Success 201 {object} Board
// @Failure 401 {object} ErrorResponse
// @Router /api/boards [post]
func (h *handler) CreateBoard(c *gin.Context) {
	b, err := h.service.CreateBoard(c.Request.Context(), sessionKey(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid session"})
		return
	}
	c.JSON(http.StatusCreated, b)
}

// @Summary Get board by id
// @Description Get a board with its full content
// @Tags Board
// @Accept json
// @Produce json
// @Param id path string true "Board id"
// @Success 200 {object} Board
// @Failure 404 {object} ErrorResponse
// @Router /api/boards/{id} [get]
func (h *handler) GetBoard(c *gin.Context) {
	b, err := h.service.GetBoard(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "board not found"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary List own boards
// @Description List all boards owned by the session's user
// @Tags Board
// @Accept json
// @Produce json
// @Success 200 {object} BoardListResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/boards [get]
func (h *handler) ListOwnBoards(c *gin.Context) {
	boards, err := h.service.ListOwnBoards(c.Request.Context(), sessionKey(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid session"})
		return
	}
	c.JSON(http.StatusOK, BoardListResponse{Boards: boards})
}

// @Summary Delete a board
// @Description Delete a board; owner only
// @Tags Board
// @Accept json
// @Produce json
// @Param id path string true "Board id"
// @Success 204 "deleted"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/boards/{id} [delete]
func (h *handler) DeleteBoard(c *gin.Context) {
	err := h.service.DeleteBoard(c.Request.Context(), sessionKey(c), c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the owner can delete a board"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "board not found"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete board"})
	}
}

func sessionKey(c *gin.Context) string {
	if key := c.GetHeader("X-Session-Key"); key != "" {
		return key
	}
	return c.Query("session_key")
}
