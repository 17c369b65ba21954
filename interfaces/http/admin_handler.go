package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"terastream/domain/repository"
	"terastream/usecase"
)

type IAdminHandler interface {
	PurgeCache(c *gin.Context)
	History(c *gin.Context)
}

type AdminHandler struct {
	resolveUsecase usecase.IResolveUsecase
	metrics        repository.IMetrics
}

func NewAdminHandler(resolveUsecase usecase.IResolveUsecase, metrics repository.IMetrics) IAdminHandler {
	return &AdminHandler{resolveUsecase: resolveUsecase, metrics: metrics}
}

func (h *AdminHandler) PurgeCache(c *gin.Context) {
	h.metrics.IncRequest("admin")
	surl := c.Query("surl")
	if err := h.resolveUsecase.Purge(c.Request.Context(), surl); err != nil {
		respondError(c, h.metrics, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": surl})
}

func (h *AdminHandler) History(c *gin.Context) {
	h.metrics.IncRequest("admin")
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.resolveUsecase.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.metrics, "admin", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
