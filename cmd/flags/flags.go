package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/issuance-factory/api"
	"github.com/ruteri/issuance-factory/common"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"FACTORY_LISTEN_ADDR"},
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "base URL of the factory API",
	EnvVars: []string{"FACTORY_SERVER"},
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	Value:   "http://127.0.0.1:8545",
	Usage:   "address to connect to RPC",
	EnvVars: []string{"FACTORY_RPC_ADDR"},
}

var StateFlag = &cli.StringSliceFlag{
	Name:    "state",
	Value:   cli.NewStringSlice("memory://default"),
	Usage:   "state backend URI, repeat to replicate (memory://, file://, bolt://, sqlite://, redis://, s3://, vault://, ipfs://)",
	EnvVars: []string{"FACTORY_STATE"},
}

var SelfAddrFlag = &cli.StringFlag{
	Name:     "self-address",
	Required: true,
	Usage:    "address the factory is reachable at, used as the registry minter. 40-char hex string with no 0x prefix",
	EnvVars:  []string{"FACTORY_SELF_ADDRESS"},
}

var DispatcherFlag = &cli.StringFlag{
	Name:    "dispatcher",
	Value:   "local",
	Usage:   "where emitted messages go: 'local', 'kafka' or 'onchain'",
	EnvVars: []string{"FACTORY_DISPATCHER"},
}

var KafkaBrokersFlag = &cli.StringSliceFlag{
	Name:    "kafka-brokers",
	Usage:   "kafka seed brokers (dispatcher=kafka)",
	EnvVars: []string{"FACTORY_KAFKA_BROKERS"},
}

var KafkaTopicFlag = &cli.StringFlag{
	Name:    "kafka-topic",
	Value:   "factory-messages",
	Usage:   "kafka topic for emitted messages (dispatcher=kafka)",
	EnvVars: []string{"FACTORY_KAFKA_TOPIC"},
}

var RegistryHostFlag = &cli.StringFlag{
	Name:    "registry-host",
	Usage:   "registry host contract address (dispatcher=onchain). 40-char hex string with no 0x prefix",
	EnvVars: []string{"FACTORY_REGISTRY_HOST"},
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	Usage:   "hex-encoded key used to sign registry host transactions (dispatcher=onchain)",
	EnvVars: []string{"FACTORY_PRIVATE_KEY"},
}

var TracingFlag = &cli.BoolFlag{
	Name:    "tracing",
	Value:   false,
	Usage:   "print operation spans to stdout",
	EnvVars: []string{"FACTORY_TRACING"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"FACTORY_LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"FACTORY_LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"FACTORY_METRICS_ADDR"},
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var CommonFlags = append([]cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}, LogFlags...)
