package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minimart/internal/config"
	"minimart/internal/gateway"
	"minimart/internal/handler"
	"minimart/internal/router"
	"minimart/internal/transport"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting buyer gateway...")

	cfg := config.MustLoad()

	customerAddr := cfg.Services.CustomerAddress()
	productAddr := cfg.Services.ProductAddress()

	// Each accepted connection gets its own gateway instance with its
	// own pooled client, so connection workers never share sockets.
	srv := transport.NewServer("BuyerGW", cfg.Services.BuyerGatewayAddress(), func() transport.Handler {
		client := transport.NewClient(
			transport.WithDialTimeout(cfg.Client.DialTimeout),
			transport.WithCallTimeout(cfg.Client.CallTimeout),
		)
		return gateway.NewBuyer(customerAddr, productAddr, client)
	})
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Buyer gateway listening on %s (customer=%s product=%s)",
		cfg.Services.BuyerGatewayAddress(), customerAddr, productAddr)

	debugSrv := startDebug(cfg.Debug.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down buyer gateway...")

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

	log.Println("Buyer gateway stopped")
}

func startDebug(addr string) *http.Server {
	if addr == "" {
		return nil
	}

	r := router.New(router.Config{
		Handler: handler.New("buyergw"),
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
