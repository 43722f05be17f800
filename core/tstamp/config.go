package tstamp

import (
	"context"
	"errors"
	"log/slog"

	"example.com/fpga-time/driver/fpga"
)

type TxType int

const (
	TxOff TxType = iota
	TxOn
)

type RxFilter int

const (
	RxFilterNone RxFilter = iota
	RxFilterPTPv2L4Event
	RxFilterPTPv2L4Sync
	RxFilterPTPv2L4DelayReq
)

// Config is the hardware timestamping configuration surface: a reserved
// flags field, the tx timestamping type and the rx filter selection.
type Config struct {
	Flags    uint32
	TxType   TxType
	RxFilter RxFilter
}

var (
	errReservedFlags       = errors.New("reserved config flags must be zero")
	errUnsupportedTxType   = errors.New("unsupported tx timestamping type")
	errUnsupportedRxFilter = errors.New("unsupported rx filter")
)

// Configure applies a hardware timestamping configuration request. The
// request is validated in full before any state changes; an invalid request
// is rejected without side effects. Accepted rx event filters are narrowed
// to the PTP v2 L4 event filter in the returned config.
func (e *Engine) Configure(ctx context.Context, cfg Config) (Config, error) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()

	if cfg.Flags != 0 {
		e.log.LogAttrs(ctx, slog.LevelError, "config flags set but reserved",
			slog.Uint64("flags", uint64(cfg.Flags)))
		return Config{}, errReservedFlags
	}

	var tx bool
	switch cfg.TxType {
	case TxOff:
		tx = false
	case TxOn:
		tx = true
	default:
		e.log.LogAttrs(ctx, slog.LevelError, "tx type not supported",
			slog.Int("tx type", int(cfg.TxType)))
		return Config{}, errUnsupportedTxType
	}

	var rx bool
	switch cfg.RxFilter {
	case RxFilterNone:
		rx = false
	case RxFilterPTPv2L4Event, RxFilterPTPv2L4Sync, RxFilterPTPv2L4DelayReq:
		rx = true
		cfg.RxFilter = RxFilterPTPv2L4Event
	default:
		e.log.LogAttrs(ctx, slog.LevelError, "rx filter not supported",
			slog.Int("rx filter", int(cfg.RxFilter)))
		return Config{}, errUnsupportedRxFilter
	}

	e.setMode(ctx, tx, rx)
	return cfg, nil
}

func (e *Engine) SetTxEnabled(ctx context.Context, enable bool) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.mu.Lock()
	rx := e.rxEnabled
	e.mu.Unlock()
	e.setMode(ctx, enable, rx)
}

func (e *Engine) SetRxEnabled(ctx context.Context, enable bool) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.mu.Lock()
	tx := e.txEnabled
	e.mu.Unlock()
	e.setMode(ctx, tx, enable)
}

// setMode records the desired mode flags and synchronizes the hardware
// feature bit with their logical OR. The register write and the interrupt
// toggle happen only on change, with the transmit queue stopped around them
// so the mode is never observed half applied. Must be called with cfgMu held.
func (e *Engine) setMode(ctx context.Context, tx, rx bool) {
	e.mu.Lock()
	e.txEnabled, e.rxEnabled = tx, rx
	e.mu.Unlock()

	val := e.regs.ReadRegister(fpga.RegPPConfig)
	have := val&fpga.PPConfigEnablePTPTimestamps != 0
	want := tx || rx
	if have == want {
		return
	}

	if e.queue != nil {
		e.queue.Stop()
	}
	var bit uint32
	if want {
		bit = fpga.PPConfigEnablePTPTimestamps
	}
	e.regs.WriteRegisterMasked(fpga.RegPPConfig, fpga.PPConfigEnablePTPTimestamps, bit)
	if want {
		e.irqs.EnableIRQ(fpga.PPIRQTxTsAvailable)
	} else {
		e.irqs.DisableIRQ(fpga.PPIRQTxTsAvailable)
	}
	if e.queue != nil {
		e.queue.Start()
	}

	e.log.LogAttrs(ctx, slog.LevelInfo, "hardware timestamp generation",
		slog.Bool("enabled", want))
}
