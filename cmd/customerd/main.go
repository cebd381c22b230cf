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
	"minimart/internal/customer"
	"minimart/internal/handler"
	"minimart/internal/repository"
	"minimart/internal/router"
	"minimart/internal/session"
	"minimart/internal/transport"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting customer service...")

	cfg := config.MustLoad()

	// Initialize customer store based on config
	var store repository.CustomerStore
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
		mysqlStore, err := repository.NewMySQLCustomerStore(db)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL store: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL customer store initialized")
	case "memory":
		store = repository.NewMemoryCustomerStore()
		log.Println("In-memory customer store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteCustomerStore(cfg.Store.CustomerPath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite customer store initialized")
	}
	defer store.Close()

	// Initialize session store based on config
	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddress(),
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Failed to ping Redis: %v", err)
		}
		sessions = session.NewRedisStore(redisClient, cfg.Session.Timeout)
		log.Println("Redis session store initialized")
	default: // memory
		sessions = session.NewMemoryStore(cfg.Session.Timeout)
		log.Println("In-memory session store initialized")
	}
	defer sessions.Close()

	svc := customer.New(store, sessions)

	// All connections share one service; it serializes access internally.
	srv := transport.NewServer("Customer", cfg.Services.CustomerAddress(), func() transport.Handler {
		return svc
	})
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Customer service listening on %s", cfg.Services.CustomerAddress())

	debugSrv := startDebug(cfg.Debug.Addr, svc)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down customer service...")

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

	log.Println("Customer service stopped")
}

func startDebug(addr string, svc *customer.Service) *http.Server {
	if addr == "" {
		return nil
	}

	r := router.New(router.Config{
		Handler:      handler.New("customerd"),
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
