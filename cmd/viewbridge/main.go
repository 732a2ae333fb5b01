package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"

	viewbridge "github.com/wippyai/view-bridge"
	"github.com/wippyai/view-bridge/abi"
	"github.com/wippyai/view-bridge/config"
	"github.com/wippyai/view-bridge/core"
	"github.com/wippyai/view-bridge/view"
	"github.com/wippyai/view-bridge/wasmcore"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to TOML configuration file")
		wasmFile   = flag.String("wasm", "", "Path to producer wasm module (overrides config)")
		rootHandle = flag.Uint64("root", 1, "Root view handle exported by the wasm producer")
		plain      = flag.Bool("plain", false, "Render once to stdout instead of starting the TUI")
		dump       = flag.Bool("dump", false, "Print the resolved node tree and exit")
		format     = flag.String("format", "text", "Dump format: text or cbor")
		contract   = flag.Bool("contract", false, "Print the boundary contract and exit")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: viewbridge [-config file.toml] [-wasm producer.wasm -root N]")
		fmt.Fprintln(os.Stderr, "       viewbridge -plain | -dump [-format cbor] | -contract")
		fmt.Fprintln(os.Stderr, "Without -wasm the built-in demo producer is used.")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *wasmFile != "" {
		cfg.Producer.Module = *wasmFile
	}

	if *format != "text" && *format != "cbor" {
		fmt.Fprintf(os.Stderr, "Error: unknown dump format %q\n", *format)
		os.Exit(1)
	}
	*dump = *dump || *format == "cbor"

	if err := run(cfg, *rootHandle, *plain, *dump, *contract, *format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, root uint64, plain, dump, contract bool, format string) error {
	ctx := context.Background()
	interactive := !plain && !dump && !contract && term.IsTerminal(int(os.Stdout.Fd()))

	// Log lines would tear the alternate screen.
	log := zap.NewNop()
	if !interactive || cfg.Log.Output != "" {
		var err error
		if log, err = cfg.Logger(); err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
	}

	producer, root, cleanup, err := openProducer(ctx, cfg, root, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if contract {
		return printContract(producer)
	}

	b, err := viewbridge.New(ctx, producer, root, viewbridge.OptionsFrom(cfg, log))
	if err != nil {
		return err
	}
	defer b.Close()

	switch {
	case dump && format == "cbor":
		data, err := view.MarshalSnapshot(view.TakeSnapshot(b.Root()))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case dump:
		fmt.Print(dumpTree(b.Root()))
		return nil
	case !interactive:
		fmt.Println(newRenderer(ctx, b.Session()).render(b.Root(), -1))
		return nil
	}

	_, err = tea.NewProgram(newModel(ctx, b, cfg.Producer.Module), tea.WithAltScreen()).Run()
	return err
}

// openProducer returns the configured producer and its root view handle.
func openProducer(ctx context.Context, cfg config.Config, root uint64, log *zap.Logger) (abi.Exports, uint64, func(), error) {
	if cfg.Producer.Module == "" {
		var opts []core.Option
		opts = append(opts, core.WithLogger(log.Named("core")))
		if cfg.Boundary.AsyncNotify {
			opts = append(opts, core.WithAsyncNotify())
		}
		c := core.New(opts...)
		return c, demo(c), func() { _ = c.Close() }, nil
	}

	data, err := os.ReadFile(cfg.Producer.Module)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("read producer: %w", err)
	}
	wasmcore.SetLogger(log.Named("wasmcore"))
	p, err := wasmcore.Load(ctx, data, &wasmcore.Config{MemoryLimitPages: cfg.Producer.MemoryLimitPages})
	if err != nil {
		return nil, 0, nil, err
	}
	return p, root, func() { _ = p.Close(ctx) }, nil
}

func printContract(x abi.Exports) error {
	expected := abi.ExpectedContract()
	fmt.Printf("contract version: %d (producer %d)\n", expected.Version, x.ContractVersion())
	mismatched := 0
	for _, fn := range abi.Functions {
		want, got := expected.Checksums[fn], x.Checksum(fn)
		mark := "ok"
		if want != got {
			mark = fmt.Sprintf("MISMATCH producer=%04x", got)
			mismatched++
		}
		fmt.Printf("  %04x %-40s %s\n", want, abi.Signature(fn), mark)
	}
	if err := expected.Verify(x); err != nil {
		return err
	}
	if mismatched > 0 {
		return fmt.Errorf("%d functions mismatched", mismatched)
	}
	return nil
}

func dumpTree(root *view.Node) string {
	var out []byte
	view.Walk(root, func(n *view.Node, depth int) bool {
		out = fmt.Appendf(out, "%*s%s %s [%s]\n", depth*2, "", n.Kind(), n.ID, n.State)
		return true
	})
	return string(out)
}
