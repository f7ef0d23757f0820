package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"y3sh-bybit-sdk-go/client/websocket"
	"y3sh-bybit-sdk-go/common"
)

var (
	configFilename = pflag.String("config", "", "YAML config file. Flags override its values.")

	category = pflag.String("category", "", "Feed to connect to: spot, linear, inverse, option or private. Defaults to linear.")
	testnet  = pflag.Bool("testnet", false, "Connect to testnet instead of mainnet.")
	subs     = pflag.StringSlice("sub", []string{}, "Topic to subscribe to, like orderbook.50.ETHUSDT. This flag can be given multiple times.")

	verbose = pflag.Bool("verbose", false, "Prints all debug messages.")
	format  = pflag.String("format", formatJSON, "Data output format: json or text.")

	idleTimeout  = pflag.Duration("idle-timeout", 0, "Reconnect if nothing is received for that long; 0 disables it.")
	pingInterval = pflag.Duration("ping-interval", 0, "Send a heartbeat that often; 20s is what the venue expects.")
	noReconnect  = pflag.Bool("no-reconnect", false, "Quit as soon as the session ends.")

	metricsAddr = pflag.String("metrics-addr", "", "Serve prometheus metrics on that address, like :9100.")

	credsFilename = pflag.String("creds", "", "JSON file with credentials: the file must contain an object with two properties: \"api_key\" and \"secret_key\".")
	envFilename   = pflag.String("env-file", "", "Dotenv file with BYBIT_API_KEY and BYBIT_SECRET.")

	apiKey    = pflag.String("apikey", "", "API key to use. Consider using --creds instead.")
	secretKey = pflag.String("secretkey", "", "Secret key to use. Consider using --creds instead.")
)

func main() {
	pflag.Parse()

	// Address to connect to, if not derived from the category.
	args := pflag.Args()

	cfg, err := buildConfig(pflag.CommandLine, args)
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	configureLog(cfg.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%s", errors.ErrorStack(err))
	}
}

func configureLog(verbose bool) {
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// buildConfig loads the config file, if any, and applies the flags which were
// given explicitly on top of it.
func buildConfig(flags *pflag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	if *configFilename != "" {
		var err error
		cfg, err = LoadConfig(*configFilename)
		if err != nil {
			return nil, errors.Trace(err)
		}
	}

	if flags.Changed("category") {
		cfg.Category = *category
	}
	if flags.Changed("testnet") {
		cfg.Testnet = *testnet
	}
	if flags.Changed("sub") {
		cfg.Subs = *subs
	}
	if flags.Changed("verbose") {
		cfg.Verbose = *verbose
	}
	if flags.Changed("format") {
		cfg.Format = *format
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = *idleTimeout
	}
	if flags.Changed("ping-interval") {
		cfg.PingInterval = *pingInterval
	}
	if flags.Changed("no-reconnect") {
		cfg.Reconnect.Disabled = *noReconnect
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = *metricsAddr
	}
	if flags.Changed("creds") {
		cfg.CredsFile = *credsFilename
	}
	if flags.Changed("env-file") {
		cfg.EnvFile = *envFilename
	}
	if len(args) >= 1 {
		cfg.URL = args[0]
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	return cfg, nil
}

func run(ctx context.Context, cfg *Config) error {
	cat := cfg.category()

	var credentials websocket.CredentialProvider
	if cat.IsPrivate() {
		cr, err := loadCreds(cfg, &creds{APIKey: *apiKey, SecretKey: *secretKey})
		if err != nil {
			return errors.Trace(err)
		}
		if cr.empty() {
			return errors.Annotatef(websocket.ErrNoCredentials, "private feed")
		}
		credentials = websocket.NewCredentials(cr.APIKey, cr.SecretKey)
	}

	metrics, err := websocket.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return errors.Trace(err)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	p := newPrinter(os.Stdout, cfg.Format)
	logger := log.NewEntry(log.StandardLogger())

	session := func(ctx context.Context) (websocket.ExitReason, error) {
		c, err := websocket.NewStreamClient(&websocket.StreamClientParams{
			SessionParams: &websocket.SessionParams{
				URL:          cfg.URL,
				Category:     cat,
				Testnet:      cfg.Testnet,
				Credentials:  credentials,
				IdleTimeout:  cfg.IdleTimeout,
				PingInterval: cfg.PingInterval,
				PollInterval: cfg.PollInterval,
				OnAck:        p.printAck,
				OnStateChange: func(oldState, state websocket.SessionState) {
					logger.Debugf("State updated: %s -> %s", oldState, state)
				},
				Logger:  logger,
				Metrics: metrics,
			},
			OnEvent: func(ctx context.Context, ev common.TopicEvent) error {
				p.printEvent(ev)
				return nil
			},
		})
		if err != nil {
			return websocket.ExitNotStarted, errors.Trace(err)
		}

		logger.Infof("Connecting to %s ...", c.URL())
		if err := c.Connect(ctx); err != nil {
			return websocket.ExitNotStarted, err
		}

		if err := c.Subscribe(cfg.Subs...); err != nil {
			c.Close()
			return websocket.ExitNotStarted, errors.Trace(err)
		}

		return c.Run(ctx)
	}

	if cfg.Reconnect.Disabled {
		reason, err := session(ctx)
		logger.Infof("Session ended: %s", reason)
		return errors.Trace(err)
	}

	return runWithReconnect(ctx, newBackOff(cfg.Reconnect), session)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Infof("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("Metrics server failed")
	}
}
