package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/acquirelab/threedsflow"
	"github.com/acquirelab/threedsflow/internal/config"
	"github.com/acquirelab/threedsflow/internal/logging"
	"github.com/acquirelab/threedsflow/internal/metrics"
	"github.com/acquirelab/threedsflow/pkg/adapters/backend"
	"github.com/acquirelab/threedsflow/pkg/adapters/redis"
)

var rootCmd = &cobra.Command{
	Use:   "threedsflow",
	Short: "Manual test harness for 3-D Secure authentication flows",
	Long: `threedsflow drives the three-step 3-D Secure sequence (initiate
authentication, authenticate payer, authorize/pay) against a payment
gateway sandbox, letting an operator edit each request before dispatch
and step through interactive challenges.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (defaults to "+config.DefaultFile+")")
}

func loadConfig(cmd *cobra.Command) config.Config {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildHarness wires a Harness from the config: backend executor, session
// store, locking, logging, metrics. The returned cleanup closes the Redis
// client when one was opened.
func buildHarness(cfg config.Config) (*threedsflow.Harness, *metrics.Metrics, func(), error) {
	logger := logging.New(cfg.Log.SlogLevel())
	executor := backend.New(cfg.Backend.URL, nil)
	m := metrics.New(prometheus.DefaultRegisterer)

	opts := []threedsflow.Option{
		threedsflow.WithLogger(logger),
		threedsflow.WithMetrics(m),
	}
	cleanup := func() {}

	switch cfg.Store.Backend {
	case "", "memory":
		// Default in-memory store.
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		opts = append(opts,
			threedsflow.WithStore(redis.NewFromClient(client)),
			threedsflow.WithLocker(redis.NewLocker(client, "threedsflow:")),
		)
		cleanup = func() { _ = client.Close() }
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return threedsflow.New(executor, opts...), m, cleanup, nil
}
