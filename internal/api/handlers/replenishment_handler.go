package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ReplenishmentService is what the handler needs from the service layer.
type ReplenishmentService interface {
	TriggerRun(ctx context.Context) (*domain.RunSummary, error)
	LatestRun(ctx context.Context) (*domain.RunSummary, error)
	GetRun(ctx context.Context, id string) (*domain.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
	Active() bool
}

type ReplenishmentHandler struct {
	service ReplenishmentService
}

func NewReplenishmentHandler(service ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

// TriggerRun starts a run and responds with its summary once it finishes
func (h *ReplenishmentHandler) TriggerRun(c *gin.Context) {
	summary, err := h.service.TriggerRun(c.Request.Context())
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a replenishment run is already in progress"})
		return
	case errors.Is(err, scheduler.ErrRunQueued):
		c.JSON(http.StatusAccepted, gin.H{"message": "replenishment run queued"})
		return
	case errors.Is(err, domain.ErrDataUnavailable):
		log.Error().Err(err).Msg("replenishment run aborted")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inventory data unavailable", "summary": summary})
		return
	case err != nil:
		log.Error().Err(err).Msg("failed to trigger replenishment run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger replenishment run"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListRuns returns recent runs from the ledger
func (h *ReplenishmentHandler) ListRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list replenishment runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs, "count": len(runs)})
}

// GetStatus reports whether a run is active in this instance
func (h *ReplenishmentHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.service.Active()})
}

func (h *ReplenishmentHandler) GetLatestRun(c *gin.Context) {
	summary, err := h.service.LatestRun(c.Request.Context())
	h.respondRun(c, summary, err)
}

func (h *ReplenishmentHandler) GetRun(c *gin.Context) {
	summary, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	h.respondRun(c, summary, err)
}

func (h *ReplenishmentHandler) respondRun(c *gin.Context, summary *domain.RunSummary, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch replenishment run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
