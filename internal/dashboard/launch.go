package dashboard

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"epidash/pkg/models"
)

// LaunchOptions tunes a standalone launch. Zero values get defaults.
type LaunchOptions struct {
	Addr string // default ":8080"
	Hub  *Hub   // default: a fresh hub
}

// Launch starts a standalone, blocking dashboard session serving the
// given modules over HTTP. Configuration errors are returned before
// anything binds, so a bad launch never leaves a half-started server.
// Launch only returns once the server stops.
func Launch(data *models.LineList, configs []models.ModuleConfig, opts LaunchOptions) error {
	if data == nil {
		return fmt.Errorf("launch: line list required")
	}
	if len(configs) == 0 {
		return fmt.Errorf("launch: at least one module config required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}

	session := NewSession(data)
	for _, cfg := range configs {
		if err := session.Enable(cfg); err != nil {
			return fmt.Errorf("launch %s: %w", cfg.Kind(), err)
		}
	}

	router := gin.Default()
	handler := NewHandler(session, opts.Hub)
	handler.RegisterRoutes(router.Group(""))
	router.GET("/ws", WSHandler(opts.Hub))

	opts.Hub.Broadcast(SessionEvent{Type: EventSessionStarted})
	log.Printf("[dashboard] session listening on %s (modules: %v)", opts.Addr, session.Enabled())

	srv := &http.Server{Addr: opts.Addr, Handler: router}
	return srv.ListenAndServe()
}
