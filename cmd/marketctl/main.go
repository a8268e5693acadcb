package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"nftescrow/config"
	"nftescrow/core"
	"nftescrow/core/genesis"
	"nftescrow/indexer"
	"nftescrow/native/market"
	"nftescrow/storage"
)

const (
	initConfigCommand    = "init-config"
	exportEscrowsCommand = "export-escrows"
	addressCommand       = "address"
	defaultConfig        = "./market.toml"
	exportPageSize       = 256
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case initConfigCommand:
		err = runInitConfig(os.Args[2:])
	case exportEscrowsCommand:
		err = runExportEscrows(os.Args[2:])
	case addressCommand:
		err = runAddress(os.Args[2:], os.Stdout)
	default:
		usage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: marketctl <command> [flags]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  %s     write a default daemon configuration\n", initConfigCommand)
	fmt.Fprintf(w, "  %s  export escrow items to a parquet file (daemon must be stopped)\n", exportEscrowsCommand)
	fmt.Fprintf(w, "  %s         convert an address between hex and bech32\n", addressCommand)
}

func runInitConfig(args []string) error {
	fs := flag.NewFlagSet(initConfigCommand, flag.ContinueOnError)
	path := fs.String("config", defaultConfig, "Output path for the configuration file")
	force := fs.Bool("force", false, "Overwrite an existing configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return initConfig(*path, *force)
}

func initConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config %s already exists (use -force to overwrite)", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func runExportEscrows(args []string) error {
	fs := flag.NewFlagSet(exportEscrowsCommand, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfig, "Path to the daemon configuration file")
	out := fs.String("out", "escrows.parquet", "Output parquet file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	count, err := exportEscrows(cfg, *out)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d escrow items to %s\n", count, *out)
	return nil
}

func exportEscrows(cfg *config.Config, out string) (int, error) {
	db, err := storage.Open(cfg.DBBackend, cfg.DataDir)
	if err != nil {
		return 0, fmt.Errorf("open database: %w", err)
	}

	owner, marketAddr, err := cfg.Identities()
	if err != nil {
		db.Close()
		return 0, err
	}
	node, err := core.NewNode(db, core.Config{Address: marketAddr, Owner: owner})
	if err != nil {
		db.Close()
		return 0, err
	}
	defer node.Close()

	var items []*market.EscrowItem
	for from := uint64(0); ; from += exportPageSize {
		page, err := node.MarketEscrowItems(from, exportPageSize)
		if err != nil {
			return 0, fmt.Errorf("read escrow items: %w", err)
		}
		items = append(items, page...)
		if len(page) < exportPageSize {
			break
		}
	}
	if err := indexer.ExportEscrowsParquet(out, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func runAddress(args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: marketctl %s <hex|bech32>", addressCommand)
	}
	raw := strings.TrimSpace(args[0])
	addr, err := genesis.ParseAddress(raw)
	if err != nil {
		return err
	}
	encoded, err := genesis.EncodeBech32Account(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "hex:    %s\nbech32: %s\n", addr.Hex(), encoded)
	return nil
}
