// README: Entry point; loads config, wires stores and services, starts the HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fleetrent/internal/config"
	"fleetrent/internal/events"
	httptransport "fleetrent/internal/http"
	"fleetrent/internal/infra"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/fleet"
	"fleetrent/internal/modules/handover"
	"fleetrent/internal/modules/invoice"
	"fleetrent/internal/modules/offer"
	"fleetrent/internal/modules/payment"
	"fleetrent/internal/modules/pricing"
	"fleetrent/internal/paygate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("fleetrent-api stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var pub events.Publisher
	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL)
		if err != nil {
			return err
		}
		defer amqpPub.Close()
		pub = amqpPub
	} else {
		slog.Warn("FLEETRENT_AMQP_URL not set; domain events are not published")
	}

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool))
	fleetSvc := fleet.NewService(fleet.NewStore(dbPool))
	offerSvc := offer.NewService(offer.NewStore(dbPool), offer.NewRedisCache(redisClient))

	bookingStore := booking.NewStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, pricingSvc, fleetSvc, pub)

	handoverSvc := handover.NewService(
		handover.NewStore(dbPool),
		bookingSvc,
		fleetSvc,
		handover.NewRedisHold(redisClient, cfg.VehicleHoldTTL),
		pub,
	)

	invoiceSvc := invoice.NewService(invoice.Deps{
		Repo:     invoice.NewStore(dbPool),
		Bookings: bookingSvc,
		Pricing:  pricingSvc,
		Fleet:    fleetSvc,
		Offers:   offerSvc,
		Events:   pub,
		Currency: cfg.Currency,
	})

	gateway := paygate.NewHTTPClient(cfg.Paygate.KeyID, cfg.Paygate.KeySecret, cfg.Paygate.BaseURL)
	paymentSvc := payment.NewService(payment.NewStore(dbPool), bookingSvc, gateway, pub)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:  verifier,
		Quoter:    pricingSvc,
		Bookings:  bookingSvc,
		Handovers: handoverSvc,
		Invoices:  invoiceSvc,
		Payments:  paymentSvc,
		Offers:    offerSvc,
		Fleet:     fleetSvc,
		Addons:    pricingSvc,
	})

	return httptransport.NewServer(cfg.HTTP.Addr, router).Run(ctx)
}

// newVerifier prefers Firebase ID tokens and falls back to HS256 JWTs for local runs.
func newVerifier(ctx context.Context, cfg config.Config) (infra.TokenVerifier, error) {
	if cfg.Firebase.ProjectID != "" {
		return infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	}
	slog.Warn("firebase not configured; using JWT verifier")
	return infra.NewJWTVerifier(cfg.JWT.Secret), nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	loc := cfg.Timezone
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindTime && loc != nil {
				a.Value = slog.TimeValue(a.Value.Time().In(loc))
			}
			return a
		},
	}))
}
