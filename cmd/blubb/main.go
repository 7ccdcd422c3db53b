package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/blubb/internal/profile"
	"github.com/hrygo/blubb/server"
	"github.com/hrygo/blubb/internal/observability"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/cache"
	"github.com/hrygo/blubb/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "blubb",
	Short: "A room membership service with a cache-aside consistency layer",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Secret:  viper.GetString("secret"),
			Version: version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("failed to validate profile: %w", err)
		}
		slog.SetDefault(observability.NewLogger(instanceProfile.Mode))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		driver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}
		storeInstance := store.New(driver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}

		cacheInstance, err := newCache(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create cache: %w", err)
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, cacheInstance)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			cancel()
		}

		<-ctx.Done()
		return nil
	},
}

// newCache picks the shared Redis cache when configured, otherwise the
// in-process cache. Dev and test setups run without Redis.
func newCache(p *profile.Profile) (cache.Cache, error) {
	if p.IsRedisEnabled() {
		return cache.NewRedis(cache.RedisConfigFromProfile(p))
	}
	slog.Info("no redis configured, using in-process cache")
	return cache.NewMemory(cache.Config{}), nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf(`blubb v%s
---
Server profile
mode: %s
driver: %s
addr: %s
port: %d
data: %s
---
`, p.Version, p.Mode, p.Driver, p.Addr, p.Port, p.Data)
}

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("secret", "", "key used to verify access tokens")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "secret"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("blubb")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
