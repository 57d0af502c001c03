package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ollamaui/chat"
	"ollamaui/config"
	"ollamaui/logger"
	"ollamaui/models"
	"ollamaui/providers"
)

var (
	configPath string
	logLevel   string
	logFile    string
	version    = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "ollamaui",
	Short: "Minimal chat front-end for a local Ollama server",
	Long: `ollamaui serves a small chat page that lists the models installed on an
Ollama server and forwards prompts with their conversation history to it.
The same chat is available over DNS TXT queries and SSH when those ports are set.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configured front-ends",
	RunE:  runServe,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Print the models installed on the inference server",
	RunE:  runModels,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("ollamaui v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides config")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a rotated file instead of stderr")

	rootCmd.AddCommand(serveCmd, modelsCmd, versionCmd)
}

// loadConfig reads configuration and sets up logging; flags win over file and env
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return cfg, nil
}

// newResponder builds the core from configuration
func newResponder(cfg *config.Config) *chat.Responder {
	provider := providers.NewOllamaProvider(providers.OllamaConfig{
		BaseURL:        cfg.Inference.BaseURL,
		ChatTimeout:    cfg.ChatTimeout(),
		CatalogTimeout: cfg.CatalogTimeout(),
		Options:        cfg.Inference.Options,
	})
	info := provider.GetInfo()
	logger.Debug("inference provider", "name", info.Name, "version", info.Version, "base_url", info.BaseURL)

	return chat.NewResponder(provider, chat.Directive{
		Role:    cfg.Inference.DirectiveRole,
		Content: cfg.Inference.Directive,
	})
}

func newRateLimiter(cfg *config.Config) *RateLimiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimitIdleTTL())
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	responder := newResponder(cfg)
	limiter := newRateLimiter(cfg)

	logger.Info("starting",
		"inference", cfg.Inference.BaseURL,
		"http", cfg.Server.HTTPPort,
		"https", cfg.Server.HTTPSPort,
		"dns", cfg.DNS.Port,
		"ssh", cfg.SSH.Port,
		"directive_role", responder.Directive().Role,
	)

	g, ctx := errgroup.WithContext(ctx)
	started := 0

	if cfg.SSH.Port > 0 {
		sshServer, err := NewSSHServer(cfg, responder, limiter)
		if err != nil {
			return err
		}
		started++
		g.Go(func() error { return sshServer.ListenAndServe(ctx, cfg.SSH.Port) })
	}

	if cfg.DNS.Port > 0 {
		dnsServer := NewDNSServer(cfg, responder, limiter)
		started++
		g.Go(func() error { return dnsServer.ListenAndServe(ctx, cfg.DNS.Port) })
	}

	web := NewWebServer(cfg, responder, limiter)
	if cfg.Server.HTTPPort > 0 || cfg.Server.HTTPSPort > 0 {
		g.Go(func() error { return web.health.Run(ctx) })
	}

	if cfg.Server.HTTPSPort > 0 {
		certPath, keyPath, found := findSSLCertificates(cfg.Server)
		if !found {
			logger.Warn("SSL certificates not found, HTTPS disabled",
				"expected", "cert.pem and key.pem in working directory, server.cert_file/key_file, or Let's Encrypt via BASE_DOMAIN")
		} else {
			started++
			g.Go(func() error { return StartHTTPSServer(ctx, web, cfg.Server.HTTPSPort, certPath, keyPath) })
		}
	}

	if cfg.Server.HTTPPort > 0 {
		started++
		g.Go(func() error { return StartHTTPServer(ctx, web, cfg.Server.HTTPPort) })
	}

	if started == 0 {
		return fmt.Errorf("no front-end enabled: set server.http_port, server.https_port, dns.port or ssh.port")
	}

	err = g.Wait()
	logger.Info("stopped")
	return err
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	list := newResponder(cfg).ListModels(cmd.Context())
	if len(list) == 1 && list[0].IsPlaceholder() {
		return fmt.Errorf("%s (%s)", models.CatalogUnavailableName, cfg.Inference.BaseURL)
	}

	for _, name := range models.Names(list) {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
