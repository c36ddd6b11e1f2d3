// Package main implements the CLI client for the replicated KV service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	kvgrpc "github.com/linearkv/linearkv/internal/transport/grpc/kv"
)

const usage = `Usage:
  client [--addr host:port[,host:port,...]] get <key>
  client [--addr host:port[,host:port,...]] put <key> <value>
  client [--addr host:port[,host:port,...]] append <key> <value>
  client [--addr host:port[,host:port,...]] status
  client [--addr host:port[,host:port,...]] watch

Commands:
  get     reads a key through the current leader
  put     replaces a key's value
  append  appends to a key's value (missing keys start empty)
  status  prints a one-shot status line per node
  watch   renders a live cluster status table

Flags:
  --addr     Comma-separated KV gRPC addresses
  --timeout  Request timeout (default 5s)
`

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:8080", "comma-separated KV gRPC addresses")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Usage = func() { _, _ = fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("subcommand required: get | put | append | status | watch")
	}

	addrs := splitAddrs(*addr)

	switch args[0] {
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get <key>")
		}
		return withClerk(addrs, func(ctx context.Context, ck *kvgrpc.Clerk) error {
			return cmdGet(ctx, ck, args[1])
		}, *timeout)

	case "put":
		if len(args) != 3 {
			return fmt.Errorf("usage: put <key> <value>")
		}
		return withClerk(addrs, func(ctx context.Context, ck *kvgrpc.Clerk) error {
			return cmdPut(ctx, ck, args[1], args[2])
		}, *timeout)

	case "append":
		if len(args) != 3 {
			return fmt.Errorf("usage: append <key> <value>")
		}
		return withClerk(addrs, func(ctx context.Context, ck *kvgrpc.Clerk) error {
			return cmdAppend(ctx, ck, args[1], args[2])
		}, *timeout)

	case "status":
		if len(args) != 1 {
			return fmt.Errorf("usage: status")
		}
		return cmdStatus(addrs, *timeout)

	case "watch":
		if len(args) != 1 {
			return fmt.Errorf("usage: watch")
		}
		return cmdWatch(addrs, *timeout)

	default:
		flag.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func withClerk(addrs []string, fn func(context.Context, *kvgrpc.Clerk) error, timeout time.Duration) error {
	clerk, err := kvgrpc.DialClerk(addrs, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer func() { _ = clerk.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, clerk)
}

func cmdGet(ctx context.Context, ck *kvgrpc.Clerk, key string) error {
	value, found, err := ck.Get(ctx, key)
	if err != nil {
		return friendlyErr(err)
	}
	if !found {
		fmt.Printf("(not found) %s\n", key)
		return nil
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func cmdPut(ctx context.Context, ck *kvgrpc.Clerk, key, value string) error {
	if err := ck.Put(ctx, key, value); err != nil {
		return friendlyErr(err)
	}
	fmt.Println("ok")
	return nil
}

func cmdAppend(ctx context.Context, ck *kvgrpc.Clerk, key, value string) error {
	if err := ck.Append(ctx, key, value); err != nil {
		return friendlyErr(err)
	}
	fmt.Println("ok")
	return nil
}

func cmdStatus(addrs []string, timeout time.Duration) error {
	conns, err := openStatusConns(addrs)
	if err != nil {
		return err
	}
	defer closeStatusConns(conns)

	rows, _ := pollStatusRows(context.Background(), conns, timeout)
	for _, r := range rows {
		if r.err != "" {
			fmt.Printf("%s\tunreachable\t%s\n", r.addr, r.err)
			continue
		}
		fmt.Printf("%s\t%s\t%s\tterm=%d applied=%d pending=%d keys=%d log=%s\n",
			r.addr, r.nodeID, r.role(), r.term, r.applied, r.pending, r.keys, formatBytes(r.stateBytes))
	}
	return nil
}

func friendlyErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out, cluster may have no leader")
	}
	return err
}

func splitAddrs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
