package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fiffu/listingwatch/app"
	"github.com/fiffu/listingwatch/config"
	"github.com/fiffu/listingwatch/lib/snapshotter"
	"github.com/fiffu/listingwatch/senders"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			zapcore.ISO8601TimeEncoder(t.UTC(), enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		fx.Provide(NewLogger),
		fx.Provide(config.NewConfig),
		fx.Provide(snapshotter.NewMetrics),

		fx.Provide(app.NewTransport),
		fx.Provide(app.NewObjectStore),
		fx.Provide(app.NewPublisher),
		fx.Provide(senders.NewSenderRegistry),

		fx.Provide(snapshotter.NewSnapshotter),
		fx.Provide(app.NewService),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*http.Server) {}),
	).Run()
}
