package dashboard

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"epidash/internal/modules"
)

type Handler struct {
	Session *Session
	Hub     *Hub
}

func NewHandler(session *Session, hub *Hub) *Handler {
	return &Handler{Session: session, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.session)
	rg.GET("/modules/place", h.place)
	rg.POST("/modules/place/layer", h.switchLayer)
	rg.POST("/modules/place/view", h.setPlaceView)
	rg.GET("/modules/time", h.epicurve)
	rg.POST("/modules/time/view", h.setTimeView)
	rg.GET("/modules/person", h.pyramid)
}

func (h *Handler) session(c *gin.Context) {
	c.JSON(http.StatusOK, h.Session.Snapshot())
}

func (h *Handler) place(c *gin.Context) {
	agg, err := h.Session.Place()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}

type switchLayerReq struct {
	Layer string `json:"layer"`
}

func (h *Handler) switchLayer(c *gin.Context) {
	var req switchLayerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Layer = strings.TrimSpace(req.Layer)
	if req.Layer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "layer required"})
		return
	}

	layer, err := h.Session.SwitchLayer(req.Layer)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	h.broadcast(SessionEvent{
		Type:   EventLayerSwitched,
		Module: "place",
		Layer:  layer.Name,
	})

	agg, err := h.Session.Place()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}

type placeViewReq struct {
	GroupVar string `json:"group_var"`

	// group_var="" must be distinguishable from "not sent"
	ClearGroup bool `json:"clear_group,omitempty"`
}

func (h *Handler) setPlaceView(c *gin.Context) {
	var req placeViewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if req.GroupVar != "" || req.ClearGroup {
		if err := h.Session.SetPlaceStratification(req.GroupVar); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.broadcast(SessionEvent{
			Type:     EventStratificationChanged,
			Module:   "place",
			GroupVar: req.GroupVar,
		})
	}

	agg, err := h.Session.Place()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (h *Handler) epicurve(c *gin.Context) {
	agg, err := h.Session.Epicurve()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}

type timeViewReq struct {
	DateVar  string `json:"date_var"`
	GroupVar string `json:"group_var"`
	Interval string `json:"interval"`

	// group_var="" must be distinguishable from "not sent"
	ClearGroup bool `json:"clear_group,omitempty"`
}

func (h *Handler) setTimeView(c *gin.Context) {
	var req timeViewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if req.DateVar != "" {
		if err := h.Session.SetDateVar(req.DateVar); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Interval != "" {
		if err := h.Session.SetInterval(modules.Interval(req.Interval)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.broadcast(SessionEvent{
			Type:     EventIntervalChanged,
			Module:   "time",
			Interval: req.Interval,
		})
	}
	if req.GroupVar != "" || req.ClearGroup {
		if err := h.Session.SetStratification(req.GroupVar); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.broadcast(SessionEvent{
			Type:     EventStratificationChanged,
			Module:   "time",
			GroupVar: req.GroupVar,
		})
	}

	agg, err := h.Session.Epicurve()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (h *Handler) pyramid(c *gin.Context) {
	agg, err := h.Session.Pyramid()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (h *Handler) broadcast(ev SessionEvent) {
	if h.Hub == nil {
		return
	}
	h.Hub.Broadcast(ev)
}
