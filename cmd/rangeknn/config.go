package main

import (
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// Config validation errors.
var (
	ErrInvalidDatasetPath = errors.New("dataset_path cannot be empty")
	ErrInvalidOutputPath  = errors.New("output_path cannot be empty")
	ErrInvalidOrder       = errors.New("bptree_order must be positive")
	ErrInvalidFillFactor  = errors.New("bptree_fill_factor must be in (0, 1]")
	ErrInvalidGraphM      = errors.New("graph_m must be positive")
	ErrInvalidEfConstruct = errors.New("graph_ef_construction must be positive")
	ErrInvalidTBrute      = errors.New("t_brute must be positive")
	ErrInvalidK           = errors.New("k must be positive")
	ErrInvalidListenAddr  = errors.New("listen_addr cannot be empty")
	ErrInvalidMetricsAddr = errors.New("metrics_addr cannot be empty")
	ErrInvalidLogFormat   = errors.New("log_format must be 'json' or 'text'")
	ErrInvalidLogLevel    = errors.New("log_level must be debug, info, warn, or error")
)

// Config holds every tunable rangeknn needs, populated from the
// environment under the RANGEKNN_ prefix (with .env file support).
type Config struct {
	DatasetPath string `envconfig:"DATASET_PATH"`
	QueryPath   string `envconfig:"QUERY_PATH"`
	OutputPath  string `envconfig:"OUTPUT_PATH" default:"output.bin"`
	DegreesPath string `envconfig:"DEGREES_PATH" default:"degrees.parquet"`

	BPTreeOrder      int     `envconfig:"BPTREE_ORDER" default:"100"`
	BPTreeFillFactor float64 `envconfig:"BPTREE_FILL_FACTOR" default:"1.0"`

	GraphM              int `envconfig:"GRAPH_M" default:"24"`
	GraphEfConstruction int `envconfig:"GRAPH_EF_CONSTRUCTION" default:"140"`

	TBrute int `envconfig:"T_BRUTE" default:"3000"`
	K      int `envconfig:"K" default:"100"`

	ListenAddr  string `envconfig:"LISTEN_ADDR" default:"0.0.0.0:3000"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:"0.0.0.0:9090"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	GRPCMaxRecvMsgSize int           `envconfig:"GRPC_MAX_RECV_MSG_SIZE" default:"536870912"`
	GRPCMaxSendMsgSize int           `envconfig:"GRPC_MAX_SEND_MSG_SIZE" default:"536870912"`
	KeepAliveTime      time.Duration `envconfig:"KEEPALIVE_TIME" default:"2h"`
	KeepAliveTimeout   time.Duration `envconfig:"KEEPALIVE_TIMEOUT" default:"20s"`
}

// ValidateConfig validates cfg, returning the first violated constraint.
func ValidateConfig(cfg *Config) error {
	if cfg.DatasetPath == "" {
		return ErrInvalidDatasetPath
	}
	if cfg.OutputPath == "" {
		return ErrInvalidOutputPath
	}
	if cfg.BPTreeOrder <= 0 {
		return ErrInvalidOrder
	}
	if cfg.BPTreeFillFactor <= 0 || cfg.BPTreeFillFactor > 1 {
		return ErrInvalidFillFactor
	}
	if cfg.GraphM <= 0 {
		return ErrInvalidGraphM
	}
	if cfg.GraphEfConstruction <= 0 {
		return ErrInvalidEfConstruct
	}
	if cfg.TBrute <= 0 {
		return ErrInvalidTBrute
	}
	if cfg.K <= 0 {
		return ErrInvalidK
	}
	if cfg.ListenAddr == "" {
		return ErrInvalidListenAddr
	}
	if cfg.MetricsAddr == "" {
		return ErrInvalidMetricsAddr
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return ErrInvalidLogFormat
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// DefaultConfig returns a Config with every field at its documented
// default, equivalent to running envconfig.Process with no environment
// variables set.
func DefaultConfig() Config {
	return Config{
		OutputPath:          "output.bin",
		DegreesPath:         "degrees.parquet",
		BPTreeOrder:         100,
		BPTreeFillFactor:    1.0,
		GraphM:              24,
		GraphEfConstruction: 140,
		TBrute:              3000,
		K:                   100,
		ListenAddr:          "0.0.0.0:3000",
		MetricsAddr:         "0.0.0.0:9090",
		LogFormat:           "json",
		LogLevel:            "info",
		GRPCMaxRecvMsgSize:  512 * 1024 * 1024,
		GRPCMaxSendMsgSize:  512 * 1024 * 1024,
		KeepAliveTime:       2 * time.Hour,
		KeepAliveTimeout:    20 * time.Second,
	}
}

// BuildGRPCServerOptions returns grpc.ServerOption values derived from cfg.
func (c *Config) BuildGRPCServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    c.KeepAliveTime,
			Timeout: c.KeepAliveTimeout,
		}),
		grpc.MaxRecvMsgSize(c.GRPCMaxRecvMsgSize),
		grpc.MaxSendMsgSize(c.GRPCMaxSendMsgSize),
	}
}
