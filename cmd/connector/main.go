// Command connector runs the market-data stream client and publishes
// normalized feed events onto the inter-process event bus for strategy
// processes to consume.
package main

import (
	"flag"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abdoElHodaky/mdcore/internal/config"
	"github.com/abdoElHodaky/mdcore/internal/connector"
)

func main() {
	configPath := flag.String("config", "", "path to connector YAML config (defaults used if empty)")
	flag.Parse()

	app := fx.New(
		fx.Provide(
			func() (*config.Config, error) { return config.LoadConfig(*configPath) },
			newLogger,
		),
		connector.Module,
	)
	app.Run()
}

// newLogger builds the process logger from the loaded config's logging
// section, matching the teacher's environment-driven zap.NewProduction vs.
// zap.NewDevelopment split in cmd/main.go's newLogger.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.Logging.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableCaller = !cfg.Logging.EnableCaller

	return zcfg.Build()
}
