package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Prober checks whether one interface address answers. A nil error means
// reachable; any error, including a timeout, means unreachable.
type Prober interface {
	Probe(ctx context.Context, addr string) error
}

// TCPProber dials a TCP port on the address.
type TCPProber struct {
	Port int
}

func (p TCPProber) Probe(ctx context.Context, addr string) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(p.Port)))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnreachable, err)
	}
	_ = conn.Close()
	return nil
}

// ICMPProber sends one unprivileged echo request (a datagram ICMP socket)
// and waits for the matching reply until ctx is done. On Linux the
// net.ipv4.ping_group_range sysctl must include the process group.
type ICMPProber struct{}

// listenICMP is a seam for tests.
var listenICMP = func() (net.PacketConn, error) {
	c, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (ICMPProber) Probe(ctx context.Context, addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: invalid IPv4 address %q", common.ErrUnreachable, addr)
	}

	conn, err := listenICMP()
	if err != nil {
		return fmt.Errorf("icmp listen: %w", err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(common.DefaultProbeTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	seq := rand.IntN(1 << 16)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: os.Getpid() & 0xffff, Seq: seq, Data: []byte("fleetsync")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}
	if _, err := conn.WriteTo(wb, &net.UDPAddr{IP: ip}); err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnreachable, err)
	}

	rb := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", common.ErrUnreachable, ctx.Err())
			}
			return fmt.Errorf("%w: %w", common.ErrUnreachable, err)
		}
		if !samePeer(peer, ip) {
			continue
		}
		reply, err := icmp.ParseMessage(ipv4.ICMPTypeEcho.Protocol(), rb[:n])
		if err != nil {
			continue
		}
		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		// the kernel rewrites the echo id on datagram sockets; match on seq
		if echo, ok := reply.Body.(*icmp.Echo); ok && echo.Seq == seq {
			return nil
		}
	}
}

func samePeer(peer net.Addr, ip net.IP) bool {
	var pip net.IP
	switch a := peer.(type) {
	case *net.UDPAddr:
		pip = a.IP
	case *net.IPAddr:
		pip = a.IP
	default:
		return false
	}
	return pip.Equal(ip)
}

// NewProber picks a Prober by mode name ("tcp" or "icmp").
func NewProber(mode string, port int) (Prober, error) {
	switch mode {
	case "tcp":
		return TCPProber{Port: port}, nil
	case "icmp":
		return ICMPProber{}, nil
	default:
		return nil, errors.New("unknown probe mode " + strconv.Quote(mode))
	}
}
