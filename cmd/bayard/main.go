// Command bayard runs a single Bayard cluster member: the gossip
// membership layer, the metadata catalog, the shard reconciler, and the
// gRPC IndexService that the router and other members' client pools
// dial. Every member runs the identical binary — there is no separate
// coordinator process.
//
// Configuration is entirely environment-variable driven; see
// internal/config for the full list.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/bayardsearch/bayard/internal/clientpool"
	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/config"
	"github.com/bayardsearch/bayard/internal/metastore"
	"github.com/bayardsearch/bayard/internal/metrics"
	"github.com/bayardsearch/bayard/internal/node"
	"github.com/bayardsearch/bayard/internal/router"
	"github.com/bayardsearch/bayard/internal/rpc"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
	}
	sink := metrics.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := metastore.Open(cfg.IndicesDir, logger)
	if err != nil {
		logger.Fatal("metastore open", zap.Error(err))
	}
	go store.Run(ctx)

	members, err := cluster.New(cluster.Config{
		NodeName:      cfg.NodeName,
		BindAddr:      cfg.BindAddr,
		BindPort:      cfg.BindPort,
		AdvertiseAddr: cfg.AdvertiseAddr,
		AdvertisePort: cfg.AdvertisePort,
		GRPCAddress:   cfg.GRPCAddr,
		HTTPAddress:   cfg.AdminAddr,
		MembersFile:   cfg.MembersFile,
		Logger:        logger,
		Metrics:       sink,
	})
	if err != nil {
		logger.Fatal("cluster new", zap.Error(err))
	}
	defer members.Shutdown()

	if len(cfg.JoinAddrs) > 0 {
		if _, err := members.Join(cfg.JoinAddrs); err != nil {
			logger.Warn("cluster join", zap.Strings("addrs", cfg.JoinAddrs), zap.Error(err))
		}
	}

	pool := clientpool.New(logger)
	defer pool.Close()
	go pool.Run(ctx, members.WatchMembers())

	n := node.New(cfg.IndicesDir, members.LocalMember().SocketAddress, logger, sink)
	go n.Run(ctx, store.Watch(), members.WatchMembers())
	go n.RunMessages(ctx, members.WatchMessage())

	rt := router.New(router.NewClientSource(pool), n, logger, sink)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryErrorInterceptor()))
	rpc.RegisterIndexServiceServer(grpcServer, node.NewServer(n, members))
	rpc.RegisterClientServiceServer(grpcServer, router.NewServer(rt))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("grpc listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !n.Readiness() {
			http.Error(w, "reconciler has not completed its first pass", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	adminServer := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("admin listening", zap.String("addr", cfg.AdminAddr))
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin serve", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	cancel()
	grpcServer.GracefulStop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
