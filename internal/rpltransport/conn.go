// Package rpltransport carries RPL control messages (ICMPv6 type 155)
// over a real link, and backs [rpl.NeighborCache] with the kernel's
// neighbour table. It is the only package in this module that touches a
// socket or netlink.
package rpltransport

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"

	"github.com/sixlowpan/rpl/internal/rpl"
)

// allRPLNodesAddr is the link-local all-RPL-nodes multicast address
// (RFC 6550 section 20.15).
const allRPLNodesAddr = "ff02::1a"

// Conn sends and receives raw RPL control messages over one network
// interface's ICMPv6 socket, mirroring the teacher's router-advertisement
// socket setup (hop limit 255 on both unicast and multicast, a single
// [ipv6.PacketConn] shared between reads and writes).
type Conn struct {
	pc    *ipv6.PacketConn
	raw   *icmp.PacketConn
	iface *net.Interface
}

// Listen opens a raw ICMPv6 socket on ifaceName and joins the
// all-RPL-nodes multicast group, ready for [Conn.ReadFrom]/[Conn.SendTo].
func Listen(ifaceName string) (c *Conn, err error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, errors.Annotate(err, "rpltransport: resolving interface: %w")
	}

	raw, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
	if err != nil {
		return nil, errors.Annotate(err, "rpltransport: listening: %w")
	}

	success := false
	defer func() {
		if !success {
			_ = raw.Close()
		}
	}()

	pc := raw.IPv6PacketConn()

	if err = pc.SetHopLimit(255); err != nil {
		return nil, errors.Annotate(err, "rpltransport: set hop limit: %w")
	}

	if err = pc.SetMulticastHopLimit(255); err != nil {
		return nil, errors.Annotate(err, "rpltransport: set multicast hop limit: %w")
	}

	if err = pc.SetControlMessage(ipv6.FlagDst|ipv6.FlagSrc|ipv6.FlagInterface|ipv6.FlagHopLimit, true); err != nil {
		return nil, errors.Annotate(err, "rpltransport: set control message: %w")
	}

	group := &net.IPAddr{IP: net.ParseIP(allRPLNodesAddr), Zone: ifaceName}
	if err = pc.JoinGroup(iface, group); err != nil {
		return nil, errors.Annotate(err, "rpltransport: joining all-RPL-nodes group: %w")
	}

	success = true

	return &Conn{pc: pc, raw: raw, iface: iface}, nil
}

// Close releases the underlying socket.
func (c *Conn) Close() (err error) {
	return c.raw.Close()
}

// SendTo transmits an already-encoded RPL message body to dst. The
// empty string addresses the all-RPL-nodes multicast group.
func (c *Conn) SendTo(code rpl.Code, body []byte, dst string) (err error) {
	msg := icmp.Message{
		Type: ipv6.ICMPType(rpl.ICMPv6Type),
		Code: int(code),
		Body: &icmp.RawBody{Data: body},
	}

	wire, err := msg.Marshal(nil)
	if err != nil {
		return errors.Annotate(err, "rpltransport: marshaling: %w")
	}

	addr := &net.UDPAddr{IP: net.ParseIP(allRPLNodesAddr), Zone: c.iface.Name}
	if dst != "" {
		ip, parseErr := netip.ParseAddr(dst)
		if parseErr != nil {
			return errors.Annotate(parseErr, "rpltransport: parsing destination: %w")
		}
		addr = &net.UDPAddr{IP: net.IP(ip.AsSlice()), Zone: c.iface.Name}
	}

	cm := &ipv6.ControlMessage{HopLimit: 255, IfIndex: c.iface.Index}

	_, err = c.pc.WriteTo(wire, cm, addr)
	if err != nil {
		return errors.Annotate(err, "rpltransport: writing: %w")
	}

	return nil
}

// Received is one decoded inbound datagram, ready to hand to
// [rpl.Engine.HandleICMPv6].
type Received struct {
	Code      rpl.Code
	Body      []byte
	SrcKey    rpl.NeighborKey
	Multicast bool
}

// ReadFrom blocks until the next RPL control message arrives, silently
// retrying on any packet that isn't a well-formed RPL message (wrong
// ICMPv6 type, or a hop limit below 255 indicating it was forwarded —
// see RFC 6550 section 6's "MUST be discarded" requirement).
func (c *Conn) ReadFrom(buf []byte) (r Received, err error) {
	for {
		n, cm, src, readErr := c.pc.ReadFrom(buf)
		if readErr != nil {
			return Received{}, errors.Annotate(readErr, "rpltransport: reading: %w")
		}

		if cm != nil && cm.HopLimit != 255 {
			continue
		}

		// 58 is the IANA protocol number of ICMPv6.
		msg, parseErr := icmp.ParseMessage(58, buf[:n])
		if parseErr != nil || int(msg.Type.(ipv6.ICMPType)) != rpl.ICMPv6Type {
			continue
		}

		raw, ok := msg.Body.(*icmp.RawBody)
		if !ok {
			continue
		}

		ipAddr, ok := src.(*net.IPAddr)
		if !ok {
			continue
		}

		return Received{
			Code:      rpl.Code(msg.Code),
			Body:      append([]byte(nil), raw.Data...),
			SrcKey:    rpl.NeighborKey(ipAddr.IP.String()),
			Multicast: cm != nil && net.ParseIP(allRPLNodesAddr).Equal(cm.Dst),
		}, nil
	}
}

// String implements [fmt.Stringer] for diagnostic logging.
func (c *Conn) String() (s string) {
	return fmt.Sprintf("rpltransport.Conn{iface: %s}", c.iface.Name)
}
