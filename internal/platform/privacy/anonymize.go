// Package privacy coarsens client addresses and user agents before they reach logs.
package privacy

import (
	"fmt"
	"net"
)

// AnonymizeIP zeroes the host portion of an address: IPv4 keeps its /24
// ("192.168.1.47" -> "192.168.1.0") and IPv6 keeps its /48 prefix.
// Unparseable input yields "invalid" and empty input "unknown".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// AnonymizeRemoteAddr accepts http.Request.RemoteAddr, which usually carries
// a port, and anonymizes the host part.
func AnonymizeRemoteAddr(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return AnonymizeIP(host)
	}
	return AnonymizeIP(addr)
}
