package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minimart/internal/config"
	"minimart/internal/handler"
	"minimart/internal/product"
	"minimart/internal/repository"
	"minimart/internal/router"
	"minimart/internal/transport"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting product service...")

	cfg := config.MustLoad()

	// Initialize product store based on config
	var store repository.ProductStore
	switch cfg.Store.Type {
	case "mysql":
		db, err := sql.Open("mysql", cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping MySQL: %v", err)
		}
		mysqlStore, err := repository.NewMySQLProductStore(db)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL store: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL product store initialized")
	case "memory":
		store = repository.NewMemoryProductStore()
		log.Println("In-memory product store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteProductStore(cfg.Store.ProductPath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite product store initialized")
	}
	defer store.Close()

	svc := product.New(store)

	// All connections share one service; it serializes access internally.
	srv := transport.NewServer("Product", cfg.Services.ProductAddress(), func() transport.Handler {
		return svc
	})
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Product service listening on %s", cfg.Services.ProductAddress())

	debugSrv := startDebug(cfg.Debug.Addr, svc)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down product service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if debugSrv != nil {
		if err := debugSrv.Shutdown(ctx); err != nil {
			log.Printf("Debug server shutdown error: %v", err)
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Product service stopped")
}

func startDebug(addr string, svc *product.Service) *http.Server {
	if addr == "" {
		return nil
	}

	r := router.New(router.Config{
		Handler:      handler.New("productd"),
		StatsHandler: handler.NewStatsHandler(svc),
	})

	debugSrv := &http.Server{Addr: addr, Handler: r}
	go func() {
		log.Printf("Debug server listening on %s", addr)
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Debug server error: %v", err)
		}
	}()
	return debugSrv
}
