package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/rangeknn/hybridindex/internal/analytics"
	"github.com/rangeknn/hybridindex/internal/dispatcher"
	"github.com/rangeknn/hybridindex/internal/engine"
	"github.com/rangeknn/hybridindex/internal/graph"
	"github.com/rangeknn/hybridindex/internal/layout"
	"github.com/rangeknn/hybridindex/internal/logging"
	"github.com/rangeknn/hybridindex/internal/pointio"
	"github.com/rangeknn/hybridindex/internal/service"
)

func main() {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RANGEKNN", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <query|serve> [flags]\n", os.Args[0])
		os.Exit(1)
	}

	switch os.Args[1] {
	case "query":
		runQuery(cfg, os.Args[2:])
	case "serve":
		runServe(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q; want query or serve\n", os.Args[1])
		os.Exit(1)
	}
}

func engineConfig(cfg Config) engine.Config {
	return engine.Config{
		Order:      cfg.BPTreeOrder,
		FillFactor: cfg.BPTreeFillFactor,
		Graph:      graph.Config{M: cfg.GraphM, EfConstruction: cfg.GraphEfConstruction},
		Dispatch:   dispatcher.Config{TBrute: cfg.TBrute, K: cfg.K},
	}
}

// runQuery is the one-shot batch path: build the index over a dataset
// file, answer every query in a query file, and save the k-NN result
// matrix. Positional arguments override the corresponding config paths,
// matching the historical <dataset> <queries> <output> CLI shape.
func runQuery(cfg Config, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fs.Parse(args)

	switch fs.NArg() {
	case 3:
		cfg.DatasetPath = fs.Arg(0)
		cfg.QueryPath = fs.Arg(1)
		cfg.OutputPath = fs.Arg(2)
	case 0:
		// fall through to the config-supplied paths
	default:
		fmt.Fprintln(os.Stderr, "usage: rangeknn query [<dataset_path> <query_path> <output_path>]")
		os.Exit(1)
	}

	if err := ValidateConfig(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: os.Stdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(engineConfig(cfg))

	start := time.Now()
	if err := eng.Build(context.Background(), cfg.DatasetPath); err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}
	logger.Info("index built", "points", eng.Len(), "elapsed", time.Since(start))

	if err := eng.ExportDegrees(cfg.DegreesPath); err != nil {
		logger.Error("degree export failed", "error", err)
		os.Exit(1)
	}

	queryLog, err := analytics.NewQueryLog()
	if err != nil {
		logger.Error("query log init failed", "error", err)
		os.Exit(1)
	}
	defer queryLog.Close()
	eng.AttachQueryLog(queryLog)

	if cfg.QueryPath == "" {
		return
	}

	queries, err := pointio.ReadQueries(cfg.QueryPath, layout.QueryDimension(layout.D))
	if err != nil {
		logger.Error("read queries failed", "error", err)
		os.Exit(1)
	}

	queryStart := time.Now()
	results, err := eng.AnswerAll(context.Background(), queries)
	if err != nil {
		logger.Error("answer failed", "error", err)
		os.Exit(1)
	}
	elapsed := time.Since(queryStart)

	if err := pointio.SaveKNN(cfg.OutputPath, results); err != nil {
		logger.Error("save results failed", "error", err)
		os.Exit(1)
	}

	qps := float64(len(queries)) / elapsed.Seconds()
	logger.Info("queries answered",
		"count", len(queries),
		"elapsed", elapsed,
		"qps", qps,
	)

	summary, err := queryLog.Summarize(context.Background(),
		`SELECT route, count(*) AS n, avg(latency_ms) AS avg_latency_ms FROM query_log GROUP BY route`)
	if err != nil {
		logger.Error("query log summary failed", "error", err)
		return
	}
	for _, row := range summary {
		logger.Info("dispatch route summary",
			"route", row["route"],
			"count", row["n"],
			"avg_latency_ms", row["avg_latency_ms"],
		)
	}
}

// runServe builds the index once and serves it over Arrow Flight/gRPC
// until terminated, with a separate Prometheus metrics listener.
func runServe(cfg Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listenAddr := fs.String("listen", cfg.ListenAddr, "address to listen on for the Flight service")
	metricsAddr := fs.String("metrics", cfg.MetricsAddr, "address to listen on for Prometheus metrics")
	fs.Parse(args)
	cfg.ListenAddr = *listenAddr
	cfg.MetricsAddr = *metricsAddr

	if err := ValidateConfig(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: os.Stdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("starting metrics server", "address", cfg.MetricsAddr)
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	eng := engine.New(engineConfig(cfg))
	if err := eng.Build(context.Background(), cfg.DatasetPath); err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}
	logger.Info("index built", "points", eng.Len())

	if err := eng.ExportDegrees(cfg.DegreesPath); err != nil {
		logger.Error("degree export failed", "error", err)
	}

	queryLog, err := analytics.NewQueryLog()
	if err != nil {
		logger.Error("query log init failed", "error", err)
	} else {
		defer queryLog.Close()
		eng.AttachQueryLog(queryLog)
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "error", err, "address", cfg.ListenAddr)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(cfg.BuildGRPCServerOptions()...)
	queryServer := service.NewQueryServer(eng, cfg.K, logger)
	flight.RegisterFlightServiceServer(grpcServer, queryServer)

	logger.Info("rangeknn query service starting", "address", cfg.ListenAddr)
	if err := grpcServer.Serve(lis); err != nil {
		logger.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
