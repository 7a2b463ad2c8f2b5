package main

import (
	"github.com/urfave/cli/v2"

	"github.com/geanlabs/pqlean/config"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the node configuration YAML file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "data-dir",
		Usage: "Directory for the chain database",
	}
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "Network name used in gossip topics",
	}
	genesisFlag = &cli.StringFlag{
		Name:  "genesis",
		Usage: "Path to the genesis JSON (GENESIS_TIME, GENESIS_VALIDATORS)",
	}
	bootnodesFlag = &cli.StringFlag{
		Name:  "bootnodes",
		Usage: "Path to a nodes.yaml bootnode list",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level (debug, info, warn, error)",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format (text, json)",
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "Serve Prometheus metrics",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "Listen address for the metrics endpoint",
	}
	validatorConfigFlag = &cli.StringFlag{
		Name:  "validator-config",
		Usage: "Path to validator-config.yaml",
	}
	nodeNameFlag = &cli.StringFlag{
		Name:  "node-name",
		Usage: "This node's entry in the validator config",
	}
	listenFlag = &cli.StringSliceFlag{
		Name:  "listen",
		Usage: "libp2p listen multiaddr (repeatable)",
	}
	storageFlag = &cli.StringFlag{
		Name:  "storage",
		Usage: "Storage engine (memory, pebble)",
	}
)

var appFlags = []cli.Flag{
	configFlag,
	dataDirFlag,
	networkFlag,
	genesisFlag,
	bootnodesFlag,
	logLevelFlag,
	logFormatFlag,
	metricsFlag,
	metricsAddrFlag,
	validatorConfigFlag,
	nodeNameFlag,
	listenFlag,
	storageFlag,
}

// loadConfig reads --config and layers the remaining flags over it.
func loadConfig(ctx *cli.Context) (*config.NodeConfig, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}

	o := config.Overrides{
		DataDir:             ctx.String(dataDirFlag.Name),
		Network:             ctx.String(networkFlag.Name),
		NodeName:            ctx.String(nodeNameFlag.Name),
		GenesisPath:         ctx.String(genesisFlag.Name),
		BootnodesPath:       ctx.String(bootnodesFlag.Name),
		ValidatorConfigPath: ctx.String(validatorConfigFlag.Name),
		ListenAddrs:         ctx.StringSlice(listenFlag.Name),
		LogLevel:            ctx.String(logLevelFlag.Name),
		LogFormat:           ctx.String(logFormatFlag.Name),
		MetricsAddress:      ctx.String(metricsAddrFlag.Name),
		StorageEngine:       ctx.String(storageFlag.Name),
	}
	if ctx.IsSet(metricsFlag.Name) {
		enabled := ctx.Bool(metricsFlag.Name)
		o.MetricsEnabled = &enabled
	}
	cfg.Apply(o)
	return cfg, cfg.Validate()
}
