package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	tempmail "github.com/tempmail-sdk/client-go"
	"github.com/tempmail-sdk/client-go/internal/config"
)

const usage = `usage: tempmail <command> [flags]

commands:
  providers   list supported providers
  create      create a mailbox
  poll        poll an existing mailbox for messages
  demo        create a mailbox and poll it until interrupted`

// IO holds the streams the command writes to.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultIO returns the process streams.
func DefaultIO() IO {
	return IO{Stdout: os.Stdout, Stderr: os.Stderr}
}

// clientFactory builds the client for a command.
type clientFactory func(cfg *config.Config, reg prometheus.Registerer) (*tempmail.Client, error)

func defaultFactory(cfg *config.Config, reg prometheus.Registerer) (*tempmail.Client, error) {
	opts := []tempmail.Option{tempmail.WithConfig(cfg)}
	if reg != nil {
		opts = append(opts, tempmail.WithMetricsRegisterer(reg))
	}
	return tempmail.New(opts...)
}

func run(ctx context.Context, args []string, streams IO) error {
	return runWith(ctx, args, streams, defaultFactory)
}

func runWith(ctx context.Context, args []string, streams IO, factory clientFactory) error {
	if len(args) == 0 {
		fmt.Fprintln(streams.Stderr, usage)
		return errors.New("missing command")
	}

	cmd := &command{name: args[0], io: streams, factory: factory}
	switch cmd.name {
	case "providers":
		return cmd.providers(args[1:])
	case "create":
		return cmd.create(ctx, args[1:])
	case "poll":
		return cmd.poll(ctx, args[1:])
	case "demo":
		return cmd.demo(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(streams.Stdout, usage)
		return nil
	}
	fmt.Fprintln(streams.Stderr, usage)
	return errors.Newf("unknown command %q", cmd.name)
}

type command struct {
	name    string
	io      IO
	factory clientFactory

	fs          *pflag.FlagSet
	jsonOut     bool
	envFile     string
	metricsAddr string
}

func (c *command) flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(c.name, pflag.ContinueOnError)
	fs.SetOutput(c.io.Stderr)
	fs.BoolVar(&c.jsonOut, "json", false, "print JSON instead of cards")
	c.fs = fs
	return fs
}

// clientFlags adds the transport, retry and logging flags shared by the
// network commands.
func (c *command) clientFlags() {
	fs := c.fs
	fs.StringVar(&c.envFile, "env-file", ".env", "dotenv file to load")
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.String("proxy", "", "http, https or socks5 proxy URL")
	fs.String("timeout", "", "HTTP and per-attempt timeout (e.g. 15s)")
	fs.Bool("insecure", false, "skip TLS verification")
	fs.Float64("rate-limit", 0, "max requests per second, 0 for none")
	fs.Int("retries", 0, "retries per provider call")
	fs.String("log-level", "", "debug, info, warn, error or silent")
	fs.Bool("log-development", false, "human-readable logs")
}

// loadConfig merges .env, TEMPMAIL_* and explicitly set flags.
func (c *command) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return nil, err
	}
	v := config.NewViper()
	bindings := map[string]string{
		"proxy":             "proxy",
		"timeout":           "timeout",
		"insecure":          "insecure",
		"rate_limit":        "rate-limit",
		"retry.max_retries": "retries",
		"log.level":         "log-level",
		"log.development":   "log-development",
	}
	for key, flag := range bindings {
		f := c.fs.Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, errors.Wrapf(err, "bind --%s", flag)
		}
	}
	return config.FromViper(v)
}

// newClient builds the client and, with --metrics-addr, starts the metrics
// server. The returned func stops it.
func (c *command) newClient() (*tempmail.Client, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var reg prometheus.Registerer
	stop := func() {}
	if c.metricsAddr != "" {
		registry := prometheus.NewRegistry()
		reg = registry
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: c.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(c.io.Stderr, "metrics server: %v\n", err)
			}
		}()
		stop = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}
	}

	client, err := c.factory(cfg, reg)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return client, stop, nil
}

func (c *command) printJSON(v any) error {
	enc := json.NewEncoder(c.io.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *command) providers(args []string) error {
	if err := c.flags().Parse(args); err != nil {
		return err
	}
	infos := tempmail.ListProviders()
	if c.jsonOut {
		return c.printJSON(infos)
	}
	fmt.Fprintln(c.io.Stdout, renderProviders(infos))
	return nil
}

func (c *command) create(ctx context.Context, args []string) error {
	fs := c.flags()
	c.clientFlags()
	providerID := fs.String("provider", "", "preferred provider")
	domain := fs.String("domain", "", "preferred domain, where supported")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, stop, err := c.newClient()
	if err != nil {
		return err
	}
	defer stop()

	mb, err := client.CreateMailbox(ctx, requestOptions(*providerID, *domain)...)
	if err != nil {
		return err
	}
	if mb == nil {
		return errors.New("every provider failed, try again later")
	}
	if c.jsonOut {
		return c.printJSON(mb)
	}
	fmt.Fprintln(c.io.Stdout, renderMailbox(*mb))
	return nil
}

type pollFlags struct {
	interval time.Duration
	maxPolls int
	count    int
}

func (c *command) addPollFlags() *pollFlags {
	p := &pollFlags{}
	c.fs.DurationVar(&p.interval, "interval", 5*time.Second, "time between polls")
	c.fs.IntVar(&p.maxPolls, "max-polls", 60, "stop after this many polls, 0 for no limit")
	c.fs.IntVar(&p.count, "count", 0, "stop after this many messages, 0 for no limit")
	return p
}

func (c *command) poll(ctx context.Context, args []string) error {
	fs := c.flags()
	c.clientFlags()
	providerID := fs.String("provider", "", "provider that issued the mailbox")
	email := fs.String("email", "", "mailbox address")
	token := fs.String("token", "", "mailbox token, if the provider issued one")
	pf := c.addPollFlags()
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, stop, err := c.newClient()
	if err != nil {
		return err
	}
	defer stop()

	mb := tempmail.Mailbox{Provider: tempmail.ProviderID(*providerID), Address: *email, Token: *token}
	return c.pollLoop(ctx, client, mb, pf)
}

func (c *command) demo(ctx context.Context, args []string) error {
	fs := c.flags()
	c.clientFlags()
	providerID := fs.String("provider", "", "preferred provider")
	pf := c.addPollFlags()
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, stop, err := c.newClient()
	if err != nil {
		return err
	}
	defer stop()

	if !c.jsonOut {
		fmt.Fprintln(c.io.Stdout, renderProviders(tempmail.ListProviders()))
	}

	session := client.NewSession()
	mb, err := session.Generate(ctx, requestOptions(*providerID, "")...)
	if err != nil {
		return err
	}
	if mb == nil {
		return errors.New("every provider failed, try again later")
	}
	if c.jsonOut {
		if err := c.printJSON(mb); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(c.io.Stdout, renderMailbox(*mb))
		fmt.Fprintf(c.io.Stdout, "Polling every %v, press Ctrl+C to stop\n", pf.interval)
	}
	return c.pollLoop(ctx, client, *mb, pf)
}

// pollLoop lists the mailbox until the context ends or a limit is hit.
// Interruption is a normal exit.
func (c *command) pollLoop(ctx context.Context, client *tempmail.Client, mb tempmail.Mailbox, pf *pollFlags) error {
	if pf.interval <= 0 {
		return errors.New("--interval must be positive")
	}
	ticker := time.NewTicker(pf.interval)
	defer ticker.Stop()

	seen := make(map[string]struct{})
	found := 0
	for n := 1; ; n++ {
		res, err := client.ListMessages(ctx, mb)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		case !res.Succeeded:
			fmt.Fprintf(c.io.Stderr, "[%s] poll %d failed, retrying\n", time.Now().Format("15:04:05"), n)
		}

		if res != nil {
			for _, m := range res.Messages {
				key := m.ID
				if key == "" {
					key = strings.Join([]string{m.ReceivedAt, m.From, m.Subject}, "\x00")
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				found++
				if err := c.printMessage(m, found); err != nil {
					return err
				}
			}
		}

		if pf.count > 0 && found >= pf.count {
			return nil
		}
		if pf.maxPolls > 0 && n >= pf.maxPolls {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c *command) printMessage(m tempmail.Message, n int) error {
	if c.jsonOut {
		return c.printJSON(m)
	}
	fmt.Fprintln(c.io.Stdout, renderMessage(m, n))
	return nil
}

func requestOptions(providerID, domain string) []tempmail.RequestOption {
	var opts []tempmail.RequestOption
	if providerID != "" {
		opts = append(opts, tempmail.WithProvider(tempmail.ProviderID(providerID)))
	}
	if domain != "" {
		opts = append(opts, tempmail.WithDomain(domain))
	}
	return opts
}
