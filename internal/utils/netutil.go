package utils

import (
	"net"
	"strconv"
	"time"
)

// CheckPortConnectable reports whether a TCP connection to host:port succeeds within timeout.
func CheckPortConnectable(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
