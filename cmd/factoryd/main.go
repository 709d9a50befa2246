package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/issuance-factory/api/handlers"
	"github.com/ruteri/issuance-factory/api/servers"
	"github.com/ruteri/issuance-factory/cmd/flags"
	"github.com/ruteri/issuance-factory/common"
	"github.com/ruteri/issuance-factory/dispatch"
	"github.com/ruteri/issuance-factory/host"
	"github.com/ruteri/issuance-factory/interfaces"
	"github.com/ruteri/issuance-factory/metrics"
	"github.com/ruteri/issuance-factory/storage"
)

var serverFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.StateFlag,
	flags.SelfAddrFlag,
	flags.DispatcherFlag,
	flags.KafkaBrokersFlag,
	flags.KafkaTopicFlag,
	flags.RpcAddrFlag,
	flags.RegistryHostFlag,
	flags.PrivateKeyFlag,
	flags.TracingFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:   "factoryd",
		Usage:  "Serve an issuance factory over HTTP",
		Flags:  serverFlags,
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	ctx := cCtx.Context
	logger := flags.SetupLogger(cCtx)

	self, err := interfaces.NewAddressFromHex(cCtx.String(flags.SelfAddrFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid self address: %w", err)
	}

	backend, err := openState(ctx, cCtx.StringSlice(flags.StateFlag.Name), logger)
	if err != nil {
		logger.Error("Failed to open state backend", "err", err)
		return err
	}
	if closer, ok := backend.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info("State backend ready", "location", backend.LocationURI())

	dispatcher, closeDispatcher, err := setupDispatcher(cCtx, self, logger)
	if err != nil {
		logger.Error("Failed to set up dispatcher", "err", err)
		return err
	}
	defer closeDispatcher()
	logger.Info("Dispatcher ready", "dispatcher", dispatcher.Name())

	tracer, shutdownTracing, err := common.SetupTracing(&common.TracingOpts{Enabled: cCtx.Bool(flags.TracingFlag.Name)})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("Failed to flush spans", "err", err)
		}
	}()

	cfg := flags.ConfigureServer(cCtx, logger)

	var metricsSrv *metrics.MetricsServer
	var hostMetrics *metrics.Metrics
	if cfg.MetricsAddr != "" {
		metricsSrv, err = metrics.New(common.PackageName, cfg.MetricsAddr)
		if err != nil {
			return err
		}
		hostMetrics = metricsSrv.Metrics()
	}

	factoryHost := host.New(host.Config{
		Backend:    backend,
		Dispatcher: dispatcher,
		Self:       self,
		Metrics:    hostMetrics,
		Tracer:     tracer,
		Log:        logger,
	})

	if local, ok := dispatcher.(*dispatch.LocalRegistry); ok {
		local.SetSink(factoryHost)
	}

	server, err := servers.New(cfg, metricsSrv, handlers.NewHandler(factoryHost, logger))
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	if local, ok := dispatcher.(*dispatch.LocalRegistry); ok {
		local.Wait()
	}
	return nil
}

func openState(ctx context.Context, uris []string, logger *slog.Logger) (interfaces.StateBackend, error) {
	if len(uris) == 0 {
		return nil, errors.New("at least one state backend is required")
	}

	locations := make([]interfaces.StateBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStateBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	return storage.NewStateBackendFactory(logger).CreateMultiBackend(ctx, locations)
}

func setupDispatcher(cCtx *cli.Context, self interfaces.Address, logger *slog.Logger) (interfaces.Dispatcher, func(), error) {
	noop := func() {}

	switch kind := cCtx.String(flags.DispatcherFlag.Name); kind {
	case "local":
		return dispatch.NewLocalRegistry(self, logger), noop, nil

	case "kafka":
		d, err := dispatch.NewKafkaDispatcher(cCtx.StringSlice(flags.KafkaBrokersFlag.Name), cCtx.String(flags.KafkaTopicFlag.Name), logger)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil

	case "onchain":
		registryHost, err := interfaces.NewAddressFromHex(cCtx.String(flags.RegistryHostFlag.Name))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid registry host address: %w", err)
		}
		privateKey, err := crypto.HexToECDSA(cCtx.String(flags.PrivateKeyFlag.Name))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid private key: %w", err)
		}

		rpcAddress := cCtx.String(flags.RpcAddrFlag.Name)
		logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
		ethClient, err := ethclient.Dial(rpcAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("dial rpc: %w", err)
		}

		chainID, err := ethClient.ChainID(cCtx.Context)
		if err != nil {
			ethClient.Close()
			return nil, nil, fmt.Errorf("fetch chain id: %w", err)
		}
		auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
		if err != nil {
			ethClient.Close()
			return nil, nil, err
		}

		d, err := dispatch.NewOnchainDispatcher(ethClient, registryHost.Common(), logger)
		if err != nil {
			ethClient.Close()
			return nil, nil, err
		}
		d.SetTransactOpts(auth)
		return d, ethClient.Close, nil

	default:
		return nil, nil, fmt.Errorf("invalid dispatcher: %s", kind)
	}
}
