// Package fleetctl implements the operator command line for the server's
// control surface.
package fleetctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/controlapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage")

const usage = `usage: fleetctl [-a addr] [-t timeout] <command> [arg]

commands:
  reconcile            run a playlist reconciliation now
  status <playlist>    show a playlist's window and active flag
  probe <device>       probe one device and store the result
  probe-all            probe the whole fleet
  content [device]     show desired content (all devices when omitted)`

// dial is a seam for tests.
var dial = func(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// Run parses args, calls the server and prints the response to out.
func Run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("fleetctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("a", "localhost:50051", "control surface address")
	timeout := fs.Duration("t", 2*time.Minute, "call timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w\n%s", ErrUsage, err, usage)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command\n%s", ErrUsage, usage)
	}

	conn, err := dial(*addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	resp, err := call(ctx, controlapi.NewClient(conn), rest[0], rest[1:])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, controlapi.Pretty(resp))
	return err
}

func call(ctx context.Context, c *controlapi.Client, cmd string, args []string) (proto.Message, error) {
	switch cmd {
	case "reconcile":
		return c.ForceReconcile(ctx)
	case "status":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: status <playlist_id>", ErrUsage)
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: invalid playlist id %q", ErrUsage, args[0])
		}
		return c.PlaylistStatus(ctx, id)
	case "probe":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: probe <device_id>", ErrUsage)
		}
		return c.ProbeDevice(ctx, args[0])
	case "probe-all":
		return c.ProbeAll(ctx)
	case "content":
		deviceID := ""
		if len(args) > 0 {
			deviceID = args[0]
		}
		return c.DesiredContent(ctx, deviceID)
	default:
		return nil, fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, cmd, usage)
	}
}
