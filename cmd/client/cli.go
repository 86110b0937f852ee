package main

import (
	"context"
	"io"
	"time"

	"brickcat/internal/catalog"
	"brickcat/internal/config"
	"brickcat/internal/network"
)

// Dependencies holds the services commands run against.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	// Remote is nil when the server could not be reached.
	Remote *network.Client
	// Local opens the fallback catalog; nil when none is configured.
	Local func() (catalog.Catalog, error)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config          string        `short:"c" type:"path" help:"TOML config file"`
	Addr            string        `short:"a" help:"Catalog server address (default 127.0.0.1:4000)"`
	FallbackDataDir string        `type:"path" help:"Answer from the CSV exports in this directory when the server cannot"`
	DialTimeout     time.Duration `help:"Give up connecting after this long"`
	Verbose         bool          `short:"v" help:"Log protocol detail to stderr"`

	Get  GetCmd  `cmd:"" help:"Look up one part, color or element"`
	Find FindCmd `cmd:"" help:"List every key of one kind"`
}

func (c *CLI) apply(cfg *config.ClientConfig) {
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.FallbackDataDir != "" {
		cfg.FallbackDataDir = c.FallbackDataDir
	}
	if c.DialTimeout != 0 {
		cfg.DialTimeout = c.DialTimeout
	}
}

// GetCmd is the "get" subcommand.
type GetCmd struct {
	Kind  string `arg:"" enum:"part-id,part-name,color-id,color-name,element" help:"What the key identifies: ${enum}"`
	Key   string `arg:"" help:"Id or exact name to look up"`
	Short bool   `short:"s" help:"Print a one-line summary"`
}

// FindCmd is the "find" subcommand.
type FindCmd struct {
	Kind string `arg:"" enum:"part-ids,part-names,color-ids,color-names,element-ids" help:"Key kind: ${enum}"`
}
