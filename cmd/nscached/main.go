// Command nscached serves namespaced caches over HTTP.
//
// Cache operations are selected by query flags on any path:
//
//	POST /?addtocache&type=car&prefix=CARS&cachekey=AUDI_A4   (body: item)
//	DELETE /?removeitemfromcache&type=car&prefix=CARS&cachekey=AUDI_A4
//	GET /?getvaluesfromcache&type=car&prefix=CARS
//
// Configuration comes from flags, NSCACHE_* environment variables and an
// optional YAML, JSON or TOML file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Namespaced in-memory cache server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a config file")
	flags.String("addr", ":8080", "listen address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("prefix", "", "default namespace prefix")
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("observe.log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("cache.prefix", flags.Lookup("prefix"))

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the cache server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), v)
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(v)
				if err != nil {
					return err
				}
				cfg.Auth = cfg.Auth.redacted()
				fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", cfg)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), serviceName, version)
			},
		},
	)
	return root
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	srv, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
