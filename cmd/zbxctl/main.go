package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/zbxctl/internal/config"
	"github.com/danmuck/zbxctl/internal/observability"
	"github.com/danmuck/zbxctl/internal/protocol/envelope"
	"github.com/danmuck/zbxctl/internal/protocol/session"
	"github.com/danmuck/zbxctl/internal/proxy"
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: zbxctl [-config path] [-timeout d] <command> [args]

commands:
  heartbeat                  send one proxy heartbeat
  config                     fetch and print the reconciled proxy configuration
  raw-config                 fetch and print the raw configuration payload
  send <host> <key> <value>  push one history value
  discover <host> <key> <macro> <value>...
                             push one low-level discovery value list
  register [-metadata m] [-ip a] [-port n] <host>...
                             auto-register hosts`)
}

func main() {
	fs := flag.NewFlagSet("zbxctl", flag.ExitOnError)
	configPath := fs.String("config", "cmd/zbxproxyd/config.toml", "proxy config path")
	timeout := fs.Duration("timeout", 30*time.Second, "overall command timeout")
	fs.Usage = func() { usage(fs.Output()) }
	_ = fs.Parse(os.Args[1:])

	observability.InitLogger("zbxctl")
	cfg, err := config.LoadProxyConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zbxctl: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := session.NewClient(cfg.Server, cfg.Port, cfg.Session())
	p := proxy.New(cfg.Name, client,
		proxy.WithOKPolicy(cfg.Policy()),
		proxy.WithReconcileOptions(cfg.ReconcileOptions()),
	)

	if err := run(ctx, p, fs.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "zbxctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, p *proxy.Proxy, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "heartbeat":
		if len(args) != 0 {
			return errUsage
		}
		resp, err := p.Request(ctx, envelope.KindProxyHeartbeat, nil)
		if err != nil {
			return err
		}
		if !resp.Success() {
			return fmt.Errorf("heartbeat rejected: response=%q", resp.Response)
		}
		fmt.Fprintln(out, "heartbeat ok")
		return nil

	case "config":
		if len(args) != 0 {
			return errUsage
		}
		payload, err := p.FetchConfig(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, reconcileView(payload, p))

	case "raw-config":
		if len(args) != 0 {
			return errUsage
		}
		payload, err := p.FetchConfig(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, payload)

	case "send":
		if len(args) != 3 {
			return errUsage
		}
		return sendMetrics(ctx, p, envelope.NewMetric(args[0], args[1], args[2]), out)

	case "discover":
		if len(args) < 3 {
			return errUsage
		}
		lld := envelope.NewDiscovery(args[2], args[3:])
		return sendMetrics(ctx, p, envelope.NewMetric(args[0], args[1], lld.String()), out)

	case "register":
		hosts, err := registrationHosts(args)
		if err != nil {
			return err
		}
		resp, err := p.Request(ctx, envelope.KindAutoRegistration, hosts)
		if err != nil {
			return err
		}
		if !resp.Success() {
			return fmt.Errorf("auto registration rejected: response=%q", resp.Response)
		}
		fmt.Fprintf(out, "registered %d host(s)\n", len(hosts))
		return nil

	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func sendMetrics(ctx context.Context, p *proxy.Proxy, metric envelope.Metric, out io.Writer) error {
	resp, err := p.Request(ctx, envelope.KindHistoryData, []envelope.Metric{metric})
	if err != nil {
		return err
	}
	counters, status := resp.Counters()
	fmt.Fprintf(out, "response=%s info=%s processed=%d failed=%d total=%d seconds_spent=%g\n",
		resp.Response, status, counters.Processed, counters.Failed, counters.Total, counters.SecondsSpent)
	if !resp.Success() || !resp.OK(p.Policy()) {
		return fmt.Errorf("history data not accepted under %s policy", p.Policy())
	}
	return nil
}

func registrationHosts(args []string) ([]envelope.RegistrationHost, error) {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	metadata := fs.String("metadata", envelope.DefaultHostMetadata, "host metadata")
	ip := fs.String("ip", envelope.DefaultAgentIP, "agent address")
	port := fs.Uint("port", envelope.DefaultAgentPort, "agent port")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("register: %v: %w", err, errUsage)
	}
	if fs.NArg() == 0 {
		return nil, errUsage
	}
	if *port == 0 || *port > math.MaxUint16 {
		return nil, fmt.Errorf("register: invalid port %d: %w", *port, errUsage)
	}
	hosts := make([]envelope.RegistrationHost, 0, fs.NArg())
	for _, h := range fs.Args() {
		hosts = append(hosts, envelope.NewRegistrationHost(h).
			WithMetadata(*metadata).
			WithAddress(*ip, uint16(*port)))
	}
	return hosts, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
