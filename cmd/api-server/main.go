package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"cardstock/internal/admin"
	"cardstock/internal/auth"
	"cardstock/internal/builder"
	"cardstock/internal/events"
	"cardstock/internal/scryfall"
	"cardstock/internal/search"
	"cardstock/internal/shopify"
	"cardstock/internal/store"
	"cardstock/internal/updater"
	"cardstock/pkg/database"
	"cardstock/pkg/models"
	"cardstock/pkg/utils"
)

func main() {
	cfg := utils.Load()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	// Blob backend: sqlite by default, redis when configured. Operator
	// accounts always live in sqlite.
	var blob store.Blob = store.NewSQLiteBlob(db)
	if cfg.RedisAddr != "" {
		log.Printf("using redis blob store at %s", cfg.RedisAddr)
		blob = store.NewRedisBlob(cfg.RedisAddr)
	}
	st := store.New(blob)

	shop := shopify.NewClient(cfg.ShopDomain, cfg.ShopToken)
	scry := scryfall.NewClient()
	indexes := builder.NewIndexProvider(st, scry, cfg.IndexTTL)

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Event feed first, so binding errors surface early.
	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))
	tcpSrv := events.NewServer(cfg.TCPAddr, hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"store_error": err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"store":       "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Search (public, compressed when the caller accepts it)
	engine := search.NewEngine(st)
	cardsGroup := router.Group("/cards")
	cardsGroup.Use(gzip.Gzip(gzip.DefaultCompression))
	search.NewHandler(engine).RegisterRoutes(cardsGroup)

	// Webhooks (authenticated by HMAC, not by operator token)
	upd := &updater.Updater{
		Store:       st,
		Indexes:     indexes,
		GameTag:     cfg.GameTag,
		ProductType: cfg.ProductType,
		StoreURL:    cfg.StoreURL,
		Hub:         hub,
	}
	updater.NewHandler(upd, cfg.WebhookSecret).RegisterRoutes(router.Group("/webhooks"))

	// Operator auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	auth.NewHandler(authRepo, tokenSvc).RegisterRoutes(router.Group("/auth"))

	// Admin (protected)
	rebuild := func(ctx context.Context) (*models.Snapshot, error) {
		idx, err := indexes.Get(ctx)
		if err != nil {
			return nil, err
		}
		b := builder.New(shop, st, idx, cfg.GameTag)
		b.ProductType = cfg.ProductType
		b.StoreURL = cfg.StoreURL
		snap, err := b.Run(ctx)
		if err != nil {
			return nil, err
		}
		hub.Broadcast(events.CatalogEvent{Type: events.TypeSnapshotRebuilt, Cards: len(snap.Cards)})
		return snap, nil
	}
	protected := router.Group("/admin")
	protected.Use(auth.Middleware(tokenSvc, authRepo))
	admin.NewHandler(st, rebuild).RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
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
		log.Printf("HTTP API server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

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

	wg.Wait()
	log.Println("servers stopped")
}
