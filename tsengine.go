// FPGA timestamping service

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/fpga-time/benchmark"

	"example.com/fpga-time/base/logbase"
	"example.com/fpga-time/base/zaplog"

	"example.com/fpga-time/core/monitor"
	"example.com/fpga-time/core/tstamp"

	"example.com/fpga-time/driver/fpga"
)

const (
	defaultBARSize     = 0x10000
	defaultMetricsAddr = "127.0.0.1:8080"
)

type svcConfig struct {
	DevicePath   string `toml:"device_path,omitempty"`
	BARSize      int    `toml:"bar_size,omitempty"`
	Interface    string `toml:"interface,omitempty"`
	LocalAddr    string `toml:"local_address,omitempty"`
	MetricsAddr  string `toml:"metrics_address,omitempty"`
	RingSize     int    `toml:"ring_size,omitempty"`
	RxTimestamps bool   `toml:"rx_timestamps,omitempty"`
}

var (
	log *zap.Logger
)

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		// See https://github.com/scionproto/scion/blob/master/pkg/log/log.go
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
	zaplog.SetLogger(log)
	slog.SetDefault(slog.New(logbase.NewZapHandler(log)))
}

func runMetricsServer(log *zap.Logger, addr string) {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(addr, nil)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

func loadConfig(configFile string) svcConfig {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	var cfg svcConfig
	err = toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		log.Fatal("failed to decode configuration", zap.Error(err))
	}
	return cfg
}

func metricsAddress(cfg svcConfig) string {
	if cfg.MetricsAddr == "" {
		return defaultMetricsAddr
	}
	return cfg.MetricsAddr
}

func localAddress(cfg svcConfig) *net.UDPAddr {
	if cfg.LocalAddr == "" {
		log.Fatal("local_address not specified in config")
	}
	localAddr, err := net.ResolveUDPAddr("udp", cfg.LocalAddr)
	if err != nil {
		log.Fatal("failed to resolve local address", zap.Error(err))
	}
	return localAddr
}

func runEngine(configFile string) {
	ctx := context.Background()
	slg := slog.Default()

	cfg := loadConfig(configFile)
	if cfg.DevicePath == "" {
		log.Fatal("device_path not specified in config")
	}
	if cfg.RingSize != 0 && cfg.RingSize < 2 {
		log.Fatal("ring_size must be at least 2")
	}
	barSize := cfg.BARSize
	if barSize == 0 {
		barSize = defaultBARSize
	}

	dev, err := fpga.OpenDevice(slg, cfg.DevicePath, barSize)
	if err != nil {
		log.Fatal("failed to open device", zap.Error(err))
	}

	e := tstamp.NewEngine(slg, dev, dev, nil /* queue */, cfg.RingSize)
	reqCfg := tstamp.Config{TxType: tstamp.TxOn}
	if cfg.RxTimestamps {
		reqCfg.RxFilter = tstamp.RxFilterPTPv2L4Event
	}
	appliedCfg, err := e.Configure(ctx, reqCfg)
	if err != nil {
		log.Fatal("failed to configure timestamping", zap.Error(err))
	}
	log.Info("timestamping configured",
		zap.Int("tx type", int(appliedCfg.TxType)),
		zap.Int("rx filter", int(appliedCfg.RxFilter)),
	)

	e.Start(ctx)

	go func() {
		for {
			err := dev.WaitIRQ()
			if err != nil {
				logbase.FatalContext(ctx, slg, "failed to wait for interrupt",
					slog.Any("error", err))
			}
			e.ServiceIRQ(ctx)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		e.Flush(ctx)
		_ = dev.Close()
		os.Exit(0)
	}()

	runMetricsServer(log, metricsAddress(cfg))
}

func runPTPMonitor(configFile string) {
	ctx := context.Background()
	slg := slog.Default()

	cfg := loadConfig(configFile)
	localAddr := localAddress(cfg)

	monitor.StartMonitor(ctx, slg, localAddr, cfg.Interface)

	runMetricsServer(log, metricsAddress(cfg))
}

func runBenchmark(ringSize int) {
	benchmark.RunEngineBenchmark(ringSize)
}

func exitWithUsage() {
	fmt.Println("<usage>")
	os.Exit(1)
}

func main() {
	var (
		verbose    bool
		configFile string
		ringSize   int
	)

	engineFlags := flag.NewFlagSet("engine", flag.ExitOnError)
	monitorFlags := flag.NewFlagSet("monitor", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	engineFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	engineFlags.StringVar(&configFile, "config", "", "Config file")

	monitorFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	monitorFlags.StringVar(&configFile, "config", "", "Config file")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.IntVar(&ringSize, "rings", tstamp.DefaultRingSize, "Ring size")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	switch os.Args[1] {
	case engineFlags.Name():
		err := engineFlags.Parse(os.Args[2:])
		if err != nil || engineFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runEngine(configFile)
	case monitorFlags.Name():
		err := monitorFlags.Parse(os.Args[2:])
		if err != nil || monitorFlags.NArg() != 0 {
			exitWithUsage()
		}
		if configFile == "" {
			exitWithUsage()
		}
		initLogger(verbose)
		runPTPMonitor(configFile)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if ringSize < 2 {
			exitWithUsage()
		}
		initLogger(verbose)
		runBenchmark(ringSize)
	case "x":
		runX()
	default:
		exitWithUsage()
	}
}
