//go:build linux

package fpga

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"

	"golang.org/x/sys/unix"
)

// Device accesses the FPGA packet-processor block through a UIO device:
// the register BAR is mapped from the device file and interrupts are
// delivered as 4-byte reads on it.
type Device struct {
	log *slog.Logger
	dev string
	fd  int
	bar []byte
}

var errShortIRQRead = errors.New("short read from uio device")

func OpenDevice(log *slog.Logger, dev string, barSize int) (*Device, error) {
	fd, err := unix.Open(dev, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		log.LogAttrs(context.Background(), slog.LevelError, "unix.Open failed",
			slog.String("dev", dev), slog.Any("error", err))
		return nil, err
	}
	bar, err := unix.Mmap(fd, 0, barSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		log.LogAttrs(context.Background(), slog.LevelError, "unix.Mmap failed",
			slog.String("dev", dev), slog.Any("error", err))
		_ = unix.Close(fd)
		return nil, err
	}
	return &Device{log: log, dev: dev, fd: fd, bar: bar}, nil
}

func (d *Device) ReadRegister(addr uint32) uint32 {
	return binary.LittleEndian.Uint32(d.bar[addr:])
}

func (d *Device) ReadRepeated(addr uint32, b []byte) {
	for i := 0; i+4 <= len(b); i += 4 {
		binary.LittleEndian.PutUint32(b[i:], d.ReadRegister(addr))
	}
}

func (d *Device) WriteRegisterMasked(addr, mask, val uint32) {
	v := binary.LittleEndian.Uint32(d.bar[addr:])
	binary.LittleEndian.PutUint32(d.bar[addr:], v&^mask|val&mask)
}

func (d *Device) EnableIRQ(mask uint32) {
	d.WriteRegisterMasked(RegPPIRQMask, mask, mask)
}

func (d *Device) DisableIRQ(mask uint32) {
	d.WriteRegisterMasked(RegPPIRQMask, mask, 0)
}

// WaitIRQ blocks until the device raises an interrupt, then re-arms it at
// the interrupt controller.
func (d *Device) WaitIRQ() error {
	var b [4]byte
	for {
		n, err := unix.Read(d.fd, b[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n != len(b) {
			return errShortIRQRead
		}
		break
	}
	one := [4]byte{1, 0, 0, 0}
	for {
		_, err := unix.Write(d.fd, one[:])
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func (d *Device) Close() error {
	err := unix.Munmap(d.bar)
	if err != nil {
		_ = unix.Close(d.fd)
		return err
	}
	return unix.Close(d.fd)
}
