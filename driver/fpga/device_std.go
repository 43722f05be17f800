//go:build !linux

package fpga

import (
	"errors"
	"log/slog"
)

type Device struct {
	log *slog.Logger
}

var errUnsupported = errors.New("uio devices are only supported on linux")

func OpenDevice(log *slog.Logger, dev string, barSize int) (*Device, error) {
	return nil, errUnsupported
}

func (d *Device) ReadRegister(addr uint32) uint32               { return 0 }
func (d *Device) ReadRepeated(addr uint32, b []byte)            {}
func (d *Device) WriteRegisterMasked(addr, mask, val uint32)    {}
func (d *Device) EnableIRQ(mask uint32)                         {}
func (d *Device) DisableIRQ(mask uint32)                        {}
func (d *Device) WaitIRQ() error                                { return errUnsupported }
func (d *Device) Close() error                                  { return nil }
