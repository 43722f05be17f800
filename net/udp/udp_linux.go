package udp

import (
	"unsafe"

	"errors"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// For details on hardware timestamping configuration, see
// - https://docs.kernel.org/networking/timestamping.html
// - https://github.com/torvalds/linux/blob/master/include/uapi/linux/net_tstamp.h

const (
	unixHWTSTAMP_FILTER_ALL          = 1
	unixHWTSTAMP_FILTER_PTP_V2_EVENT = 12
)

type hwtstampConfig struct {
	flags    int32
	txType   int32
	rxFilter int32
}

// See https://man7.org/linux/man-pages/man7/netdevice.7.html
type ifreq struct {
	ifrName [unix.IFNAMSIZ]byte
	ifrData uintptr
}

func initNetworkInterface(fd int, ifname string, filter int32) error {
	// Based on Meta's time libraries at https://github.com/facebook/time
	var req ifreq
	var cfg hwtstampConfig

	copy(req.ifrName[:cap(req.ifrName)-1], ifname)
	req.ifrData = uintptr(unsafe.Pointer(&cfg))

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		unix.SIOCGHWTSTAMP, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return errno
	}

	if cfg.rxFilter == filter {
		return nil
	}

	cfg.rxFilter = filter
	_, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(fd),
		unix.SIOCSHWTSTAMP, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return errno
	}

	return nil
}

// EnableTimestamping requests receive timestamps for conn. If iface is
// nonempty, hardware timestamps are requested from that interface,
// otherwise kernel software timestamps are used.
func EnableTimestamping(conn *net.UDPConn, iface string) error {
	sconn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var res struct {
		err error
	}

	var sockopts int

	if iface != "" {
		sockopts |= unix.SOF_TIMESTAMPING_RAW_HARDWARE |
			unix.SOF_TIMESTAMPING_RX_HARDWARE

		err = sconn.Control(func(fd uintptr) {
			err := initNetworkInterface(int(fd), iface, unixHWTSTAMP_FILTER_ALL)
			if err != nil {
				if errors.Is(err, syscall.EPERM) {
					return
				}
				err = initNetworkInterface(int(fd), iface, unixHWTSTAMP_FILTER_PTP_V2_EVENT)
				if err != nil {
					return
				}
			}
		})
		if err != nil {
			return err
		}
	} else {
		sockopts |= unix.SOF_TIMESTAMPING_SOFTWARE |
			unix.SOF_TIMESTAMPING_RX_SOFTWARE
	}

	err = sconn.Control(func(fd uintptr) {
		res.err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET,
			unix.SO_TIMESTAMPING_NEW, sockopts)
	})
	if err != nil {
		return err
	}
	return res.err
}

// TimestampFromOOBData extracts the receive timestamp from the control
// messages returned by ReadMsgUDP. Hardware timestamps take precedence
// over software timestamps when both are present.
func TimestampFromOOBData(oob []byte) (time.Time, error) {
	for unix.CmsgSpace(0) <= len(oob) {
		h := (*unix.Cmsghdr)(unsafe.Pointer(&oob[0]))
		if h.Len < unix.SizeofCmsghdr || h.Len > uint64(len(oob)) {
			return time.Time{}, errUnexpectedData
		}
		if h.Level == unix.SOL_SOCKET && h.Type == unix.SO_TIMESTAMPING_NEW {
			if h.Len != uint64(unix.CmsgSpace(3*16)) {
				return time.Time{}, errUnexpectedData
			}
			sec0 := *(*int64)(unsafe.Pointer(&oob[unix.CmsgSpace(0)]))
			nsec0 := *(*int64)(unsafe.Pointer(&oob[unix.CmsgSpace(8)]))
			sec2 := *(*int64)(unsafe.Pointer(&oob[unix.CmsgSpace(32)]))
			nsec2 := *(*int64)(unsafe.Pointer(&oob[unix.CmsgSpace(40)]))
			if sec2 != 0 || nsec2 != 0 {
				return time.Unix(sec2, nsec2), nil
			}
			return time.Unix(sec0, nsec0), nil
		}
		oob = oob[unix.CmsgSpace(int(h.Len))-unix.CmsgSpace(0):]
	}
	return time.Time{}, errTimestampNotFound
}
