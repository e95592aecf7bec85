package server

import (
	"net"
	"os"

	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/rpc"
)

type ListenAddr struct {
	Network string
	Address string
}

// ParseListenAddrs turns configured addresses ("host:port" or "unix:/path") into ListenAddrs.
func ParseListenAddrs(addrs ...string) []ListenAddr {
	var out []ListenAddr
	for _, a := range addrs {
		if a == "" {
			continue
		}
		network, address := rpc.ParseAddress(a)
		out = append(out, ListenAddr{Network: network, Address: address})
	}
	return out
}

/**
 * Create TCP and Unix socket listeners
 * @param {[]ListenAddr} addrs - Listener Address
 * @returns {[]net.Listener} Array of created listeners
 * @returns {error} Last listener creation error, if any
 * @description
 * - A stale socket file is removed before listening on it
 * - Socket files are made group accessible (0660)
 * - Addresses that fail are logged and skipped
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener

	var lastErr error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing socket file: %v", err)
				lastErr = err
				continue
			}
		}
		l, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		if addr.Network == "unix" {
			if err := os.Chmod(addr.Address, 0660); err != nil {
				logger.Warnf("Chmod socket [%s] failed: %v", addr.Address, err)
			}
		}
		listeners = append(listeners, l)
	}
	return listeners, lastErr
}
