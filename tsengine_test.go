package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"example.com/fpga-time/core/tstamp"
	"example.com/fpga-time/driver/fpga"
)

func TestLoadConfig(t *testing.T) {
	initLogger(true /* verbose */)

	raw := []byte(`
device_path = "/dev/uio0"
bar_size = 65536
interface = "eth0"
local_address = "0.0.0.0:0"
metrics_address = "127.0.0.1:9090"
ring_size = 128
rx_timestamps = true
`)
	configFile := filepath.Join(t.TempDir(), "tsengine.toml")
	err := os.WriteFile(configFile, raw, 0o644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := loadConfig(configFile)
	if cfg.DevicePath != "/dev/uio0" {
		t.Errorf("unexpected device path: %v", cfg.DevicePath)
	}
	if cfg.BARSize != 65536 {
		t.Errorf("unexpected BAR size: %v", cfg.BARSize)
	}
	if cfg.Interface != "eth0" {
		t.Errorf("unexpected interface: %v", cfg.Interface)
	}
	if metricsAddress(cfg) != "127.0.0.1:9090" {
		t.Errorf("unexpected metrics address: %v", cfg.MetricsAddr)
	}
	if cfg.RingSize != 128 {
		t.Errorf("unexpected ring size: %v", cfg.RingSize)
	}
	if !cfg.RxTimestamps {
		t.Error("expected rx timestamps to be enabled")
	}
	if metricsAddress(svcConfig{}) != defaultMetricsAddr {
		t.Errorf("unexpected default metrics address: %v", metricsAddress(svcConfig{}))
	}
}

func TestEngineWithSimDevice(t *testing.T) {
	initLogger(true /* verbose */)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := fpga.NewSimDevice()
	e := tstamp.NewEngine(slog.Default(), dev, dev, nil /* queue */, 0)
	_, err := e.Configure(ctx, tstamp.Config{TxType: tstamp.TxOn})
	if err != nil {
		t.Fatalf("failed to configure timestamping: %v", err)
	}
	e.Start(ctx)

	frame := make([]byte, 76)
	frame[14] = 0x45
	frame[14+20+8+30] = 0x00
	frame[14+20+8+31] = 0x2a
	pkt := &xPacket{frame: frame, done: make(chan struct{})}

	if !e.SubmitTx(ctx, pkt) {
		t.Fatal("failed to submit packet")
	}

	now := time.Now()
	dev.PushRecord(fpga.Record{
		SecondsLo:   uint32(now.Unix()),
		Nanoseconds: uint32(now.Nanosecond()),
		SequenceID:  0x2a,
	})
	e.ServiceIRQ(ctx)

	select {
	case <-pkt.done:
	case <-time.After(5 * time.Second):
		t.Fatal("packet was not completed")
	}
}
