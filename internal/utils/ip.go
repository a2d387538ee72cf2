package utils

import (
	"fmt"
	"math"
	"net"
)

// AddressParseError marks an object value that is neither an IP nor a CIDR.
// The owning object is reported as skipped; the batch continues.
type AddressParseError struct {
	Value string
}

func (e *AddressParseError) Error() string {
	return fmt.Sprintf("invalid address %q: not an IP or CIDR", e.Value)
}

// Inc increments an IP address.
func Inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}

// CIDRSize returns the number of addresses in a CIDR network, capped at
// MaxUint64 for very wide IPv6 prefixes.
func CIDRSize(cidr *net.IPNet) uint64 {
	ones, bits := cidr.Mask.Size()
	if bits-ones >= 64 {
		return math.MaxUint64
	}
	return 1 << (bits - ones)
}

// ParseAddress parses a bare IP or a CIDR string into a network. A bare IP
// becomes a /32 (or /128) so every object value expands the same way.
func ParseAddress(raw string) (*net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(raw)
	if err == nil {
		return ipnet, nil
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, &AddressParseError{Value: raw}
	}
	mask := net.CIDRMask(32, 32)
	if ip.To4() == nil {
		mask = net.CIDRMask(128, 128)
	}
	return &net.IPNet{IP: ip, Mask: mask}, nil
}

// Expand iterates through every address in a CIDR, network and broadcast
// included. Callers guard against large networks with CIDRSize.
func Expand(cidr *net.IPNet) []net.IP {
	var ips []net.IP
	for ip := cidr.IP.Mask(cidr.Mask); cidr.Contains(ip); Inc(ip) {
		ipCopy := make(net.IP, len(ip))
		copy(ipCopy, ip)
		ips = append(ips, ipCopy)
	}
	return ips
}
