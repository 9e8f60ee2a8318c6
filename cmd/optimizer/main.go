package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/walpredict/stock-optimizer/internal/logger"
	"github.com/walpredict/stock-optimizer/internal/metrics"
	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/manager"
	"github.com/walpredict/stock-optimizer/pkg/rest"
	"github.com/walpredict/stock-optimizer/pkg/solver"
)

// prefix of environment variables overriding settings, e.g. STOCK_OPTIMIZER_OPTIMIZER_SPEC
const envPrefix = "STOCK_OPTIMIZER"

// Server settings, from flags, environment, or a config file
type settings struct {
	Statefull      bool
	OptimizerSpec  string
	AllowedOrigins []string
	Concurrency    int
}

func loadSettings(v *viper.Viper, args []string) (*settings, error) {
	fs := pflag.NewFlagSet("optimizer", pflag.ContinueOnError)
	fs.BoolP("statefull", "F", false, "allow replacing the optimizer spec with POST /optimizer")
	fs.String("optimizer.spec", "", "YAML or JSON optimizer spec file")
	fs.StringSlice("cors.allowed-origins", rest.DefaultAllowedOrigins, "origins allowed to call the API with credentials")
	fs.Int("batch.concurrency", 0, "batch items solved concurrently (default GOMAXPROCS)")
	fs.String("config", "", "config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	return &settings{
		Statefull:      v.GetBool("statefull"),
		OptimizerSpec:  v.GetString("optimizer.spec"),
		AllowedOrigins: v.GetStringSlice("cors.allowed-origins"),
		Concurrency:    v.GetInt("batch.concurrency"),
	}, nil
}

// create and run a REST API stock optimizer server
//   - stateless (default) or statefull (with -F argument)
func main() {
	if _, err := logger.InitLogger(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.SyncLogger()

	s, err := loadSettings(viper.New(), os.Args[1:])
	if err != nil {
		logger.Log.Fatalw("invalid settings", "error", err)
	}

	spec := config.NewDefaultOptimizerSpec()
	if s.OptimizerSpec != "" {
		if spec, err = config.LoadOptimizerSpec(s.OptimizerSpec); err != nil {
			logger.Log.Fatalw("invalid optimizer spec", "error", err)
		}
	}
	optimizer := solver.NewOptimizer(spec)
	logger.Log.Infow("optimizer configured", "spec", strings.TrimSpace(optimizer.String()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mgr := manager.NewManager(optimizer, metrics.InitMetricsAndEmitter(registry))
	mgr.SetConcurrency(s.Concurrency)

	opts := rest.ServerOptions{AllowedOrigins: s.AllowedOrigins}
	var server rest.RESTServer
	if s.Statefull {
		server = rest.NewStateFullServer(mgr, registry, opts)
	} else {
		server = rest.NewStateLessServer(mgr, registry, opts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx); err != nil {
		logger.Log.Fatalw("REST server failed", "error", err)
	}
}
