// Package crust wires together the proxy's cobra/viper CLI, zap logger init,
// and signal-triggered shutdown - the same shape as the teacher's
// cmd/gate/gate.go, generalized to this proxy's own config loader.
package crust

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crust-proxy/crust/internal/config"
	"github.com/crust-proxy/crust/internal/proxy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootCmd is the single cobra command this proxy exposes today; the teacher's
// multi-subcommand layout isn't needed since there is only one runnable mode.
var rootCmd = &cobra.Command{
	Use:   "crust",
	Short: "A reverse proxy for the Minecraft Java-edition client/server protocol",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.json", "path to config.json")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("config-path", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// Execute runs the cobra root command; called from main.go.
func Execute() error {
	return rootCmd.Execute()
}

func run() error {
	cfg, err := config.Load(viper.GetString("config-path"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if viper.GetBool("debug") {
		cfg.Debug = true
	}

	if err := initLogger(cfg.Debug); err != nil {
		return fmt.Errorf("initializing global logger: %w", err)
	}

	if err := config.Validate(&cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer func() { signal.Stop(sig); close(sig) }()

	p, err := proxy.New(cfg)
	if err != nil {
		return fmt.Errorf("building proxy: %w", err)
	}

	go func() {
		s, ok := <-sig
		if !ok {
			return
		}
		zap.S().Infof("received %s signal", s)
		p.Shutdown(&component.Text{
			Content: "Crust proxy is shutting down...\nPlease reconnect in a moment!",
			S:       component.Style{Color: color.Red},
		})
	}()

	return p.Run()
}

func initLogger(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	return nil
}
