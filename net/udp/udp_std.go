//go:build !linux

package udp

import (
	"errors"
	"net"
	"time"
)

var errUnsupportedOperation = errors.New("unsupported operation")

func EnableTimestamping(conn *net.UDPConn, iface string) error {
	return errUnsupportedOperation
}

func TimestampFromOOBData(oob []byte) (time.Time, error) {
	return time.Time{}, errUnsupportedOperation
}
