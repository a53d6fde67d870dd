package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"epidash/internal/annotations"
	"epidash/internal/auth"
	"epidash/internal/dashboard"
	"epidash/internal/geo"
	"epidash/internal/linelist"
	"epidash/internal/notify"
	"epidash/pkg/database"
	"epidash/pkg/models"
	"epidash/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "dashboard config JSON (optional; serves data APIs only when omitted)")
	flag.Parse()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	srvCfg := utils.LoadServerConfig()

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start TCP sync first (so you notice binding errors early)
	hub := dashboard.NewHub()
	router.GET("/ws", dashboard.WSHandler(hub))
	tcpSrv := dashboard.NewServer(srvCfg.SyncAddr, hub)

	// UDP import alerts
	registry := notify.NewRegistry()
	notifySrv := notify.NewServer(srvCfg.NotifyAddr, registry, log.New(os.Stdout, "[notify] ", log.LstdFlags))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          dbCfg.Path,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	protectedAuth := router.Group("/auth")
	protectedAuth.Use(auth.Middleware(tokenSvc, authRepo))
	authHandler.RegisterProtectedRoutes(protectedAuth)

	// Line lists (reads public, import/delete protected)
	llRepo := linelist.NewRepo(db)
	llHandler := linelist.NewHandler(llRepo, linelist.NewLoader(), hub, notifySrv)
	llHandler.RegisterRoutes(router.Group("/datasets"))

	protectedDatasets := router.Group("/datasets")
	protectedDatasets.Use(auth.Middleware(tokenSvc, authRepo))
	llHandler.RegisterProtectedRoutes(protectedDatasets)

	// Cached boundary layers
	geoRepo := geo.NewRepo(db)
	geoHandler := geo.NewHandler(geoRepo)
	geoHandler.RegisterRoutes(router.Group("/layers"))

	// Shared module annotations
	noteHub := annotations.NewHub(0)
	router.GET("/annotations/ws", annotations.WSHandler(noteHub))
	router.GET("/annotations/history", annotations.HistoryHandler(noteHub))

	// Dashboard modules, when a config says what to serve
	if *configPath != "" {
		session, err := buildSession(*configPath, llRepo, geoRepo)
		if err != nil {
			log.Fatalf("dashboard launch aborted: %v", err)
		}
		dashHandler := dashboard.NewHandler(session, hub)
		dashHandler.RegisterRoutes(router.Group(""))
		log.Printf("[dashboard] modules enabled: %v", session.Enabled())
	} else {
		log.Println("[dashboard] no -config given, serving data APIs only")
	}

	httpSrv := &http.Server{
		Addr:    srvCfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifySrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s", srvCfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	hub.Broadcast(dashboard.SessionEvent{Type: dashboard.EventSessionStarted})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}
	if err := notifySrv.Close(); err != nil {
		log.Printf("udp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}

// buildSession resolves the configured dataset and layers from the
// store and validates every module before the server binds. Any
// missing column, layer or dataset is fatal here, not mid-render.
func buildSession(path string, llRepo *linelist.Repo, geoRepo *geo.Repo) (*dashboard.Session, error) {
	cfg, err := dashboard.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var ds *models.Dataset
	if cfg.Dataset != "" {
		ds, err = llRepo.Get(ctx, cfg.Dataset)
	} else {
		ds, err = llRepo.Latest(ctx)
	}
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.New("no dataset imported yet (run import-csv or POST /datasets/import)")
	}

	data, err := llRepo.LoadRows(ctx, ds)
	if err != nil {
		return nil, err
	}
	log.Printf("[dashboard] dataset %s (%q, %d rows)", ds.ID, ds.Name, data.Len())

	session := dashboard.NewSession(data)

	if cfg.Place != nil {
		place := models.PlaceConfig{GroupVars: cfg.Place.GroupVars}
		for _, id := range cfg.Place.LayerIDs {
			layer, err := geoRepo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if layer == nil {
				return nil, errors.New("geo layer not cached: " + id + " (run fetch-geo first)")
			}
			place.Layers = append(place.Layers, *layer)
		}
		if err := session.Enable(place); err != nil {
			return nil, err
		}
	}
	if cfg.Time != nil {
		if err := session.Enable(models.TimeConfig{
			DateVars:  cfg.Time.DateVars,
			GroupVars: cfg.Time.GroupVars,
		}); err != nil {
			return nil, err
		}
	}
	if cfg.Person != nil {
		if err := session.Enable(*cfg.Person); err != nil {
			return nil, err
		}
	}

	return session, nil
}
