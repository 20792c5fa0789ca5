package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sherrrrryzeng/dictation-trainer/internal/app"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	var (
		cfgPath = flag.String("config", "config.yaml", "path to config.yaml")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, *cfgPath)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}

	httpServer := &http.Server{
		Addr:    application.Config.Server.Address,
		Handler: application.Server.Routes(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if application.HealthChecker != nil && application.Config.Server.HealthAddress != "" {
		lis, err := net.Listen("tcp", application.Config.Server.HealthAddress)
		if err != nil {
			log.Fatalf("listen health: %v", err)
		}

		grpcServer := grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, application.HealthChecker)

		g.Go(func() error {
			log.Printf("health probe listening on %s", application.Config.Server.HealthAddress)
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
