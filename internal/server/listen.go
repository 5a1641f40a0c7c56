package server

import (
	"net"
	"strconv"

	"codeberg.org/mutker/mongeu/internal/errors"
)

// Listen opens a TCP listener on addr. IPv6 listeners are bound v6-only
// so that "0.0.0.0" and "::" can be served side by side on one port.
func Listen(addr string, port uint16) (net.Listener, error) {
	network := "tcp4"
	if ip := net.ParseIP(addr); ip != nil && ip.To4() == nil {
		network = "tcp6"
	}

	hostport := net.JoinHostPort(addr, strconv.FormatUint(uint64(port), 10))
	l, err := net.Listen(network, hostport)
	if err != nil {
		return nil, errors.New().Wrap(ErrListenFailed, err).WithData(struct {
			Address string
		}{
			Address: hostport,
		})
	}

	return l, nil
}
