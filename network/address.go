// File: network/address.go
// Author: momentics <momentics@gmail.com>
//
// IPv4/IPv6 address and endpoint value types.

package network

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/momentics/hioload-http/api"
)

// Family identifies the address family of an Address.
type Family uint8

const (
	IPv4 Family = iota + 1
	IPv6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return "unknown"
	}
}

// Len returns the number of raw octets for the family.
func (f Family) Len() int {
	if f == IPv6 {
		return 16
	}
	return 4
}

// Address is an immutable IPv4 or IPv6 address with an optional hostname.
// The hostname is used for display only; comparison uses family and bytes.
type Address struct {
	family   Family
	bytes    [16]byte
	hostname string
}

// NewIPv4 returns an IPv4 address.
func NewIPv4(b [4]byte) Address {
	a := Address{family: IPv4}
	copy(a.bytes[:], b[:])
	return a
}

// NewIPv6 returns an IPv6 address.
func NewIPv6(b [16]byte) Address {
	return Address{family: IPv6, bytes: b}
}

// NewAddress builds an address from raw octets, which must be 4 bytes for
// IPv4 and 16 bytes for IPv6.
func NewAddress(family Family, raw []byte) (Address, error) {
	if (family != IPv4 && family != IPv6) || len(raw) != family.Len() {
		return Address{}, api.NewError(api.ErrCodeInvalidArgument, "address length does not match family").
			WithContext("family", family.String()).
			WithContext("len", len(raw))
	}
	a := Address{family: family}
	copy(a.bytes[:], raw)
	return a, nil
}

// Resolve looks up hostname, trying IPv6 first and falling back to IPv4.
// It blocks on name resolution and must not be called from the reactor loop.
func Resolve(ctx context.Context, hostname string) (Address, error) {
	if ips, err := net.DefaultResolver.LookupIP(ctx, "ip6", hostname); err == nil {
		for _, ip := range ips {
			if ip16 := ip.To16(); ip16 != nil && ip.To4() == nil {
				var b [16]byte
				copy(b[:], ip16)
				return NewIPv6(b).WithHostname(hostname), nil
			}
		}
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", hostname)
	if err == nil {
		for _, ip := range ips {
			if ip4 := ip.To4(); ip4 != nil {
				var b [4]byte
				copy(b[:], ip4)
				return NewIPv4(b).WithHostname(hostname), nil
			}
		}
	}
	e := api.Wrap(api.ErrCodeResolve, "resolve", api.ErrUnresolvable).WithContext("hostname", hostname)
	if err != nil {
		e.WithContext("cause", err.Error())
	}
	return Address{}, e
}

// WithHostname returns a copy of a carrying the given display hostname.
func (a Address) WithHostname(hostname string) Address {
	a.hostname = hostname
	return a
}

// Family returns the address family.
func (a Address) Family() Family { return a.family }

// Hostname returns the hostname the address was resolved from, if any.
func (a Address) Hostname() string { return a.hostname }

// IsZero reports whether a is the zero Address.
func (a Address) IsZero() bool { return a.family == 0 }

// Bytes returns a copy of the raw octets (4 or 16 bytes).
func (a Address) Bytes() []byte {
	if a.IsZero() {
		return nil
	}
	out := make([]byte, a.family.Len())
	copy(out, a.bytes[:])
	return out
}

// Equal compares family and raw bytes; hostnames are ignored.
func (a Address) Equal(b Address) bool {
	return a.family == b.family && a.bytes == b.bytes
}

// CanonicalString renders the address from its bytes alone.
func (a Address) CanonicalString() string {
	switch a.family {
	case IPv4:
		var sb strings.Builder
		for i := 0; i < 4; i++ {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(strconv.Itoa(int(a.bytes[i])))
		}
		return sb.String()
	case IPv6:
		return formatIPv6(a.bytes)
	default:
		return ""
	}
}

// String returns the hostname when present, otherwise the canonical form.
func (a Address) String() string {
	if a.hostname != "" {
		return a.hostname
	}
	return a.CanonicalString()
}

func formatIPv6(b [16]byte) string {
	var groups [8]uint16
	for i := range groups {
		groups[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}

	// Longest run of zero groups; the first one wins on ties.
	bestStart, bestLen := -1, 0
	for i := 0; i < 8; {
		if groups[i] != 0 {
			i++
			continue
		}
		j := i
		for j < 8 && groups[j] == 0 {
			j++
		}
		if j-i > bestLen {
			bestStart, bestLen = i, j-i
		}
		i = j
	}
	if bestLen < 2 {
		bestStart = -1
	}

	var sb strings.Builder
	for i := 0; i < 8; i++ {
		if i == bestStart {
			sb.WriteString("::")
			i += bestLen - 1
			continue
		}
		if i > 0 && i != bestStart+bestLen {
			sb.WriteByte(':')
		}
		sb.WriteString(strconv.FormatUint(uint64(groups[i]), 16))
	}
	return sb.String()
}

// Endpoint is an address and port identifying one side of a connection.
type Endpoint struct {
	Address Address
	Port    uint16
}

// ResolveEndpoint resolves host and pairs it with port.
func ResolveEndpoint(ctx context.Context, host string, port uint16) (Endpoint, error) {
	addr, err := Resolve(ctx, host)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{Address: addr, Port: port}, nil
}

// Equal compares address bytes and port.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.Port == o.Port && e.Address.Equal(o.Address)
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Address.String(), strconv.Itoa(int(e.Port)))
}
