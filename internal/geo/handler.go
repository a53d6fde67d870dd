package geo

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"epidash/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)       // GET /layers
	rg.GET("/:id", h.getOne) // GET /layers/:id (GeoJSON)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Repo.ListMeta(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) getOne(c *gin.Context) {
	layer, err := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if layer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, ToGeoJSON(layer))
}

// ToGeoJSON renders a layer as a GeoJSON FeatureCollection so map
// clients can consume it directly.
func ToGeoJSON(layer *models.GeoLayer) gin.H {
	features := make([]gin.H, 0, len(layer.Features))
	for _, f := range layer.Features {
		coords := make([][][]float64, 0, len(f.Rings))
		for _, ring := range f.Rings {
			r := make([][]float64, 0, len(ring))
			for _, pt := range ring {
				r = append(r, []float64{pt.X, pt.Y})
			}
			coords = append(coords, r)
		}
		features = append(features, gin.H{
			"type":       "Feature",
			"properties": f.Attrs,
			"geometry": gin.H{
				"type":        "Polygon",
				"coordinates": coords,
			},
		})
	}
	return gin.H{
		"type":     "FeatureCollection",
		"name":     layer.Name,
		"features": features,
	}
}
