package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cardstock/internal/store"
	"cardstock/pkg/models"
)

// RebuildFunc runs a full snapshot rebuild; the api-server wires the
// builder in here.
type RebuildFunc func(ctx context.Context) (*models.Snapshot, error)

// Handler exposes operator-only catalog operations: kicking a rebuild
// and inspecting snapshot / backfill state.
type Handler struct {
	Store   *store.Store
	Rebuild RebuildFunc

	rebuilding atomic.Bool
}

func NewHandler(st *store.Store, rebuild RebuildFunc) *Handler {
	return &Handler{Store: st, Rebuild: rebuild}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rebuild", h.rebuild)
	rg.GET("/snapshot", h.snapshot)
	rg.GET("/checkpoint", h.checkpoint)
}

func (h *Handler) rebuild(c *gin.Context) {
	if !h.rebuilding.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "rebuild already running"})
		return
	}

	runID := uuid.NewString()
	go func() {
		defer h.rebuilding.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		log.Printf("[admin] rebuild %s started", runID)
		snap, err := h.Rebuild(ctx)
		if err != nil {
			log.Printf("[admin] rebuild %s failed: %v", runID, err)
			return
		}
		log.Printf("[admin] rebuild %s done: %d cards", runID, len(snap.Cards))
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "rebuild started", "run_id": runID})
}

func (h *Handler) snapshot(c *gin.Context) {
	snap, err := h.Store.LoadSnapshot(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"generated_at": snap.GeneratedAt,
		"stats":        snap.Stats,
	})
}

func (h *Handler) checkpoint(c *gin.Context) {
	cp, err := h.Store.LoadCheckpoint(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}
	c.JSON(http.StatusOK, cp)
}
