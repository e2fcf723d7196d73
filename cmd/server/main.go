package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlayaDB-AI/AlayaLite/pkg/api/rest"
	"github.com/AlayaDB-AI/AlayaLite/pkg/config"
	"github.com/AlayaDB-AI/AlayaLite/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		configFile  = flag.String("config", "", "path to configuration file (optional)")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("RaBitQ Engine Server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := loadConfig(*configFile)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.INFO, os.Stdout)
	metrics := observability.NewMetrics()

	printStartupInfo(cfg)

	engine := rest.NewEngine(cfg.Engine, logger, metrics)
	server := rest.NewServer(*cfg, engine, logger, metrics)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting REST API server", nil)
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Info("server ready, press Ctrl+C to stop", nil)
	select {
	case sig := <-sigChan:
		logger.Info("received signal", map[string]interface{}{"signal": sig.String()})
	case err := <-errChan:
		logger.Warn("server error", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("shutting down gracefully", nil)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Warn("error stopping REST server", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("server stopped, goodbye", nil)
}

func loadConfig(configFile string) *config.Config {
	if configFile != "" {
		fmt.Printf("Warning: config file support not yet implemented, using environment variables\n")
	}
	return config.LoadFromEnv()
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ____       ____  _ _   ___                              ║
║  |  _ \ __ _| __ )(_) |_/ _ \                              ║
║  | |_) / _' |  _ \| | __| | | |                            ║
║  |  _ < (_| | |_) | | |_| |_| |                            ║
║  |_| \_\__,_|____/|_|\__|\__\_\                            ║
║                                                           ║
║   RaBitQ-quantized graph ANN search engine                ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║              REST Server Configuration                 ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ TLS Enabled:      %-35v ║\n", cfg.Server.EnableTLS)
	fmt.Printf("║ Auth Enabled:     %-35v ║\n", cfg.Auth.Enabled)
	fmt.Printf("║ CORS Enabled:     %-35v ║\n", cfg.Server.CORSEnabled)
	fmt.Printf("║ Rate Limiting:    %-35v ║\n", cfg.RateLimit.Enabled)
	if cfg.RateLimit.Enabled {
		fmt.Printf("║ Rate:             %-35s ║\n", fmt.Sprintf("%.1f req/s (burst: %d)", cfg.RateLimit.RequestsPerSec, cfg.RateLimit.Burst))
	}
	fmt.Printf("║ API Docs:         %-35s ║\n", fmt.Sprintf("http://%s/docs", cfg.Server.Address()))
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Engine Configuration                     ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Dimensions:       %-35d ║\n", cfg.Engine.Dimensions)
	fmt.Printf("║ Capacity:         %-35d ║\n", cfg.Engine.Capacity)
	fmt.Printf("║ Degree Bound:     %-35d ║\n", cfg.Engine.DegreeBound)
	fmt.Printf("║ ef_search:        %-35d ║\n", cfg.Engine.EfSearch)
	fmt.Printf("║ ef_build:         %-35d ║\n", cfg.Engine.EfBuild)
	fmt.Printf("║ Data Dir:         %-35s ║\n", cfg.Engine.DataDir)
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("RaBitQ Engine Server - quantized graph ANN search over HTTP")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rabitq-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -config PATH      Path to configuration file (ignored; settings come from environment variables)")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8080)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  RABITQ_HOST                Server host")
	fmt.Println("  RABITQ_PORT                Server port")
	fmt.Println("  RABITQ_DIMENSIONS          Vector dimensions")
	fmt.Println("  RABITQ_CAPACITY            Max vectors the space can hold")
	fmt.Println("  RABITQ_DEGREE_BOUND        Fixed graph out-degree")
	fmt.Println("  RABITQ_EF_SEARCH           Default search beam width")
	fmt.Println("  RABITQ_EF_BUILD            Refinement candidate-search beam width")
	fmt.Println("  RABITQ_DATA_DIR            Snapshot directory path")
	fmt.Println("  RABITQ_ENABLE_TLS          Enable TLS (true/false)")
	fmt.Println("  RABITQ_AUTH_ENABLED        Enable JWT auth on mutating endpoints")
	fmt.Println("  RABITQ_JWT_SECRET          JWT signing secret")
	fmt.Println("  RABITQ_RATE_LIMIT_ENABLED  Enable search rate limiting")
	fmt.Println("  RABITQ_RATE_LIMIT_RPS      Requests per second per client")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Start with default configuration")
	fmt.Println("  rabitq-server")
	fmt.Println()
	fmt.Println("  # Start on custom port")
	fmt.Println("  rabitq-server -port 9090")
	fmt.Println()
	fmt.Println("  # Start with environment variables")
	fmt.Println("  RABITQ_PORT=9090 RABITQ_DIMENSIONS=1536 rabitq-server")
	fmt.Println()
}
