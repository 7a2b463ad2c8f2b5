package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/geanlabs/pqlean/internal/genesis"
	"github.com/geanlabs/pqlean/node"
	"github.com/geanlabs/pqlean/observability/logging"
)

func newApp() *cli.App {
	return &cli.App{
		Name:   "pqlean",
		Usage:  "post-quantum lean consensus client",
		Flags:  appFlags,
		Action: runNode,
		Commands: []*cli.Command{
			{
				Name:   "encode-genesis",
				Usage:  "print the genesis state's encoded length and hash tree root",
				Flags:  []cli.Flag{genesisFlag},
				Action: encodeGenesis,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pqlean: %v\n", err)
		os.Exit(1)
	}
}

func runNode(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	runCtx, stop := signal.NotifyContext(ctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := node.New(runCtx, node.Config{Node: cfg, Logger: logger})
	if err != nil {
		return errors.Wrap(err, "create node")
	}
	n.Start()

	logger.Info("pqlean running", "slot", n.CurrentSlot(), "peers", n.PeerCount())
	<-runCtx.Done()

	logger.Info("shutting down...")
	n.Stop()
	return nil
}

func encodeGenesis(ctx *cli.Context) error {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return errors.Errorf("--%s is required", genesisFlag.Name)
	}
	gen, err := genesis.LoadFromFile(path)
	if err != nil {
		return err
	}
	state, err := gen.CreateState()
	if err != nil {
		return err
	}
	enc, err := state.MarshalSSZ()
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	root, err := state.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "hash state")
	}
	block, err := genesis.GenesisBlock(state)
	if err != nil {
		return err
	}
	blockRoot, err := block.HashTreeRoot()
	if err != nil {
		return errors.Wrap(err, "hash block")
	}

	w := ctx.App.Writer
	fmt.Fprintf(w, "validators: %d\n", len(state.Validators))
	fmt.Fprintf(w, "state_bytes: %d\n", len(enc))
	fmt.Fprintf(w, "state_root: 0x%s\n", hex.EncodeToString(root[:]))
	fmt.Fprintf(w, "block_root: 0x%s\n", hex.EncodeToString(blockRoot[:]))
	return nil
}
