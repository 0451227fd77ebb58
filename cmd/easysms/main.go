// Command easysms sends one SMS using a YAML configuration file.
//
//	easysms send -config easysms.yaml -to +8618888888888 -template SMS_001 -data code=1234
//	easysms journal -dsn redis://localhost:6379/0 -n 20
//	easysms gateways
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/kart-io/easysms"
	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/errors"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/gateways"
	"github.com/kart-io/easysms/pkg/journal"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/observability"
	"github.com/kart-io/easysms/pkg/phone"
)

const envPrefix = "EASYSMS_"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "send":
		err = runSend(os.Args[2:], os.Stdout)
	case "journal":
		err = runJournal(os.Args[2:], os.Stdout)
	case "gateways":
		err = runGateways(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "easysms: %v\n", err)
		if errors.IsNoGatewayAvailable(err) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  easysms send      Send one message and print the per-gateway results")
	fmt.Fprintln(w, "  easysms journal   Show recent dispatches from a journal")
	fmt.Fprintln(w, "  easysms gateways  List the built-in gateways")
}

// dataFlag collects repeated -data key=value pairs in order
type dataFlag struct {
	keys   []string
	values map[string]string
}

func (d *dataFlag) String() string {
	pairs := make([]string, 0, len(d.keys))
	for _, k := range d.keys {
		pairs = append(pairs, k+"="+d.values[k])
	}
	return strings.Join(pairs, ",")
}

func (d *dataFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, seen := d.values[key]; !seen {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	return nil
}

func (d *dataFlag) data() message.Data {
	kv := make([]any, 0, 2*len(d.keys))
	for _, k := range d.keys {
		kv = append(kv, k, d.values[k])
	}
	return message.NewData(kv...)
}

type sendFlags struct {
	config      string
	to          string
	idd         string
	content     string
	template    string
	data        dataFlag
	gateways    string
	strategy    string
	journalDSN  string
	otlp        string
	concurrency int
	timeout     time.Duration
	verbose     bool
}

func runSend(args []string, out io.Writer) error {
	var f sendFlags
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "easysms.yaml", "configuration file (YAML or JSON)")
	fs.StringVar(&f.to, "to", "", "recipient number, e.g. +8618888888888")
	fs.StringVar(&f.idd, "idd", "", "IDD code for a national -to number")
	fs.StringVar(&f.content, "content", "", "message content")
	fs.StringVar(&f.template, "template", "", "template id")
	fs.Var(&f.data, "data", "template parameter key=value (repeatable)")
	fs.StringVar(&f.gateways, "gateways", "", "comma separated gateways, overriding the configured defaults")
	fs.StringVar(&f.strategy, "strategy", "", "strategy, overriding the configured default")
	fs.StringVar(&f.journalDSN, "journal-dsn", "", "journal DSN: memory:, redis://, postgres://, sqlite:<path>")
	fs.StringVar(&f.otlp, "otlp-endpoint", "", "OTLP/HTTP trace endpoint")
	fs.IntVar(&f.concurrency, "concurrency", 1, "gateways tried at once")
	fs.DurationVar(&f.timeout, "timeout", 0, "overall deadline (0 for none)")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.to == "" {
		return fmt.Errorf("-to is required")
	}
	if f.content == "" && f.template == "" {
		return fmt.Errorf("one of -content or -template is required")
	}

	opts, err := loadOptions(f.config, f.strategy)
	if err != nil {
		return err
	}

	level := logger.Warn
	if f.verbose {
		level = logger.Debug
	}
	lg := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags), level, "[easysms]")

	rec, err := journal.Open(f.journalDSN, lg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	telemetry := observability.Noop()
	if f.otlp != "" {
		tcfg := observability.DefaultConfig()
		tcfg.Enabled = true
		tcfg.OTLPEndpoint = f.otlp
		if telemetry, err = observability.NewTelemetryProvider(tcfg); err != nil {
			_ = rec.Close()
			return fmt.Errorf("init telemetry: %w", err)
		}
	}

	sms, err := easysms.New(opts,
		easysms.WithLogger(lg),
		easysms.WithJournal(rec),
		easysms.WithTelemetry(telemetry),
		easysms.WithConcurrency(f.concurrency),
	)
	if err != nil {
		_ = rec.Close()
		return err
	}
	defer sms.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	msg := message.NewBuilder().
		SetContent(f.content).
		SetTemplate(f.template).
		SetData(f.data.data()).
		Build()

	results, sendErr := sms.Send(ctx, phone.Parse(f.to, f.idd), msg, splitNames(f.gateways)...)
	if results != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"dispatch_id": results.DispatchID(),
			"results":     results,
		}); err != nil {
			return err
		}
	}
	return sendErr
}

func loadOptions(path, strategyName string) (*config.Options, error) {
	extra := []config.Option{config.WithEnv(envPrefix)}
	if strategyName != "" {
		extra = append(extra, config.WithStrategy(strategyName))
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.New(extra...)
		}
		return nil, err
	}
	return config.LoadFile(path, extra...)
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func runJournal(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	dsn := fs.String("dsn", os.Getenv(envPrefix+"JOURNAL_DSN"), "journal DSN (redis:// for recent, SQL for failed dispatches)")
	n := fs.Int("n", 20, "number of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := journal.Open(*dsn, logger.Discard)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx := context.Background()
	var entries []*journal.Entry
	switch r := rec.(type) {
	case *journal.RedisRecorder:
		entries, err = r.Recent(ctx, int64(*n))
	case *journal.GormRecorder:
		entries, err = r.Failed(ctx, *n)
	default:
		return fmt.Errorf("journal %q cannot be listed", *dsn)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func runGateways(out io.Writer) error {
	reg := gateway.NewRegistry(logger.Discard)
	if err := gateways.RegisterBuiltins(reg); err != nil {
		return err
	}
	for _, name := range reg.Names() {
		fmt.Fprintln(out, name)
	}
	return nil
}
