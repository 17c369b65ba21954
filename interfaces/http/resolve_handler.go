package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"terastream/domain/dto"
	"terastream/domain/model"
	"terastream/domain/repository"
	"terastream/infrastructure/logger"
	"terastream/usecase"
)

type IResolveHandler interface {
	Resolve(c *gin.Context)
	Lookup(c *gin.Context)
	File(c *gin.Context)
}

type ResolveHandler struct {
	resolveUsecase usecase.IResolveUsecase
	metrics        repository.IMetrics
}

func NewResolveHandler(resolveUsecase usecase.IResolveUsecase, metrics repository.IMetrics) IResolveHandler {
	return &ResolveHandler{resolveUsecase: resolveUsecase, metrics: metrics}
}

func (h *ResolveHandler) Resolve(c *gin.Context) {
	started := time.Now()
	h.metrics.IncRequest("resolve")

	surl := c.Query("surl")
	pwd := c.Query("pwd")
	refresh := boolQuery(c, "refresh")
	raw := boolQuery(c, "raw")
	cookie := c.GetHeader("Cookie")

	res, err := h.resolveUsecase.Resolve(c.Request.Context(), surl, pwd, cookie, refresh, raw)
	h.metrics.ObserveLatency("resolve", time.Since(started))
	if err != nil {
		respondError(c, h.metrics, "resolve", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResolveHandler) Lookup(c *gin.Context) {
	started := time.Now()
	h.metrics.IncRequest("lookup")

	payload, err := h.resolveUsecase.Lookup(c.Request.Context(), c.Query("surl"))
	h.metrics.ObserveLatency("lookup", time.Since(started))
	if err != nil {
		respondError(c, h.metrics, "lookup", err)
		return
	}
	c.JSON(http.StatusOK, dto.ResolveResponse{Source: usecase.SourceDurableStore, Data: payload})
}

func (h *ResolveHandler) File(c *gin.Context) {
	started := time.Now()
	h.metrics.IncRequest("file")

	fsID, err := strconv.ParseInt(c.Query("fs_id"), 10, 64)
	if err != nil {
		respondError(c, h.metrics, "file", model.NewMissingParamError("fs_id"))
		return
	}
	file, err := h.resolveUsecase.LookupFile(c.Request.Context(), fsID)
	h.metrics.ObserveLatency("file", time.Since(started))
	if err != nil {
		respondError(c, h.metrics, "file", err)
		return
	}
	c.JSON(http.StatusOK, dto.ResolveResponse{Source: usecase.SourceDurableStore, Data: file})
}

func boolQuery(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// respondError maps an AppError to the error envelope; anything else becomes
// a 500 internal_error so internals never leak to clients.
func respondError(c *gin.Context, m repository.IMetrics, mode string, err error) {
	var appErr *model.AppError
	if !errors.As(err, &appErr) {
		logger.GetLogger().WithField("mode", mode).WithField("error", err).Error("unclassified handler error")
		appErr = model.NewInternalError("internal error")
	}
	m.IncError(mode, appErr.Code)
	c.JSON(appErr.Status, dto.ErrorResponse{
		Error:    appErr.Message,
		Code:     appErr.Code,
		Details:  appErr.Details,
		Required: appErr.Required,
	})
}
