package linelist

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"epidash/internal/dashboard"
	"epidash/pkg/models"
)

// Broadcaster fans a session event out to connected dashboard viewers.
type Broadcaster interface {
	Broadcast(ev dashboard.SessionEvent)
}

// Alerter pushes an import alert to registered UDP clients.
type Alerter interface {
	BroadcastCasesImported(datasetID string, rowCount int)
}

type Handler struct {
	Repo   *Repo
	Loader *Loader
	Hub    Broadcaster
	Alerts Alerter
}

func NewHandler(repo *Repo, loader *Loader, hub Broadcaster, alerts Alerter) *Handler {
	return &Handler{Repo: repo, Loader: loader, Hub: hub, Alerts: alerts}
}

// RegisterRoutes mounts the public read endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)            // GET /datasets
	rg.GET("/:id", h.getByID)     // GET /datasets/:id
	rg.GET("/:id/cases", h.cases) // GET /datasets/:id/cases
}

// RegisterProtectedRoutes mounts the mutating endpoints; the caller
// wraps the group with auth middleware.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.importDataset)
	rg.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) getByID(c *gin.Context) {
	ds, err := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ds == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *Handler) cases(c *gin.Context) {
	ds, err := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if ds == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	ll, err := h.Repo.LoadRows(c.Request.Context(), ds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load rows failed"})
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	end := offset + limit
	if offset > ll.Len() {
		offset = ll.Len()
	}
	if end > ll.Len() {
		end = ll.Len()
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   ll.Len(),
		"limit":   limit,
		"offset":  offset,
		"columns": ll.Columns,
		"rows":    ll.Rows[offset:end],
	})
}

type importReq struct {
	Name   string `json:"name"`
	Source string `json:"source"` // URL or server-local path
}

func (h *Handler) importDataset(c *gin.Context) {
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Source = strings.TrimSpace(req.Source)
	if req.Name == "" || req.Source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and source required"})
		return
	}

	ll, err := h.Loader.Load(c.Request.Context(), req.Source)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "load failed: " + err.Error()})
		return
	}

	ds := models.Dataset{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Source: req.Source,
	}
	if err := h.Repo.Save(c.Request.Context(), ds, ll); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	if h.Hub != nil {
		h.Hub.Broadcast(dashboard.SessionEvent{
			Type:     dashboard.EventDatasetImported,
			Dataset:  ds.ID,
			RowCount: ll.Len(),
		})
	}
	if h.Alerts != nil {
		h.Alerts.BroadcastCasesImported(ds.ID, ll.Len())
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        ds.ID,
		"name":      ds.Name,
		"columns":   ll.Columns,
		"row_count": ll.Len(),
	})
}

func (h *Handler) remove(c *gin.Context) {
	deleted, err := h.Repo.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
