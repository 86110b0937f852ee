package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"brickcat/internal/catalog"
	"brickcat/internal/config"
	"brickcat/internal/logger"
	"brickcat/internal/network"
	"brickcat/internal/wire"

	"github.com/alecthomas/kong"
)

var errNotFound = errors.New("not found")

func main() {
	m := NewMain()
	if err := m.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Remote is the connection to the catalog server, nil when unreachable.
	Remote *network.Client
	// Local is the fallback catalog, loaded on first use.
	Local *catalog.Store
}

func NewMain() *Main {
	return &Main{}
}

// Close releases the server connection.
func (m *Main) Close() error {
	if m.Remote != nil {
		return m.Remote.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	deps := &Dependencies{Ctx: ctx, Stdout: stdout, Stderr: stderr}
	parser, err := kong.New(cli,
		kong.Name("brickcat"),
		kong.Description("Query a Rebrickable parts catalog server."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'brickcat --help' to see available commands")
	}
	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadClientConfig(cli.Config)
	if err != nil {
		return err
	}
	cli.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Setup(stderr)
	logger.SetLevel(logger.LevelError)
	if cli.Verbose {
		logger.SetLevel(logger.LevelDebug)
	}

	m.connect(ctx, cfg)
	defer m.Close()

	deps.Remote = m.Remote
	if cfg.FallbackDataDir != "" {
		deps.Local = func() (catalog.Catalog, error) {
			if m.Local == nil {
				store, err := catalog.LoadDir(cfg.FallbackDataDir)
				if err != nil {
					return nil, err
				}
				m.Local = store
			}
			return m.Local, nil
		}
	}
	return kctx.Run(deps)
}

// connect dials the server. A failure leaves Remote nil so lookups go
// straight to the local fallback.
func (m *Main) connect(ctx context.Context, cfg config.ClientConfig) {
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	c, err := network.Dial(ctx, cfg.Addr, wire.Limits{MaxFrameBytes: cfg.MaxFrameBytes})
	if err != nil {
		logger.Warn("catalog server unavailable: %v", err)
		return
	}
	m.Remote = c
}
