package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"roomly/internal/app/engine"
	"roomly/internal/domain/catalog"
	"roomly/internal/domain/reservation"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
	"roomly/internal/infra/broker/kafka"
	redisCache "roomly/internal/infra/cache/redis"
	"roomly/internal/infra/config"
	mongodb "roomly/internal/infra/db/mongo"
	ginserver "roomly/internal/infra/http/gin"
	"roomly/internal/infra/obs"
	"roomly/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	properties, plans, reservations, ready, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("store init failed", "error", err)
		os.Exit(1)
	}

	var cache *redisCache.PropertyCache
	if cfg.RedisAddr != "" {
		if client := redisCache.NewClient(cfg.RedisAddr); client != nil {
			cache = redisCache.NewPropertyCache(properties, client, cfg.CacheTTL, logger)
			properties = cache
			logger.Info("catalog cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		} else {
			logger.Warn("redis unreachable, running uncached", "addr", cfg.RedisAddr)
		}
	}

	publisher := engine.Publisher(engine.NopPublisher{})
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := kafka.NewEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, "roomly")
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		if cache != nil {
			consumer, err := kafka.NewCatalogConsumer(cfg.KafkaBrokers, "roomly-catalog", cfg.KafkaTopicPrefix+"catalog", cache, logger)
			if err != nil {
				logger.Error("kafka consumer init failed", "error", err)
				os.Exit(1)
			}
			defer consumer.Close()
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("catalog consumer stopped", "error", err)
				}
			}()
		}
	}

	bookingEngine := engine.New(engine.Deps{
		Properties:   properties,
		Plans:        plans,
		Reservations: reservations,
		Publisher:    publisher,
		Logger:       logger,
		Fees: engine.FeeSchedule{
			TaxBps:        cfg.TaxBps,
			ServiceFeeBps: cfg.ServiceFeeBps,
			DepositBps:    cfg.DepositBps,
		},
	})

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: ready}, ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Engine: bookingEngine},
		Reservation:  ginserver.ReservationHandler{Engine: bookingEngine},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (catalog.PropertyRepository, catalog.RatePlanRepository, reservation.Repository, func() error, error) {
	if cfg.StoreMode == "mongo" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		catalogRepo := mongodb.NewCatalogRepository(client.DB)
		reservationRepo := mongodb.NewReservationRepository(client.DB)
		if err := reservationRepo.EnsureIndexes(ctx); err != nil {
			return nil, nil, nil, nil, err
		}
		return catalogRepo, catalogRepo, reservationRepo, func() error { return client.Ping(context.Background()) }, nil
	}

	catalogRepo := memory.NewCatalogRepository()
	reservationRepo := memory.NewReservationRepository()
	if cfg.CatalogFixtures != "" {
		if err := loadCatalogFixtures(catalogRepo, cfg.CatalogFixtures); err != nil {
			logger.Warn("catalog fixtures load failed", "error", err, "path", cfg.CatalogFixtures)
		}
	}
	return catalogRepo, catalogRepo, reservationRepo, func() error { return nil }, nil
}

type propertyFixture struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	MaxGuests int    `json:"max_guests"`
	Beds      int    `json:"beds"`
	Bathrooms int    `json:"bathrooms"`
	BasePrice struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"base_price"`
	Policies struct {
		CheckInTime        string `json:"check_in_time"`
		CheckOutTime       string `json:"check_out_time"`
		CancellationPolicy string `json:"cancellation_policy"`
		MinStay            int    `json:"min_stay"`
		MaxStay            int    `json:"max_stay"`
		AllowsChildren     bool   `json:"allows_children"`
		AllowsInfants      bool   `json:"allows_infants"`
		AllowsPets         bool   `json:"allows_pets"`
	} `json:"policies"`
	Status string `json:"status"`
}

type ratePlanFixture struct {
	ID            string `json:"id"`
	PropertyID    string `json:"property_id"`
	Name          string `json:"name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	PricePerNight struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"price_per_night"`
	DayModifiers map[string]float64 `json:"day_modifiers"`
	MinStay      int                `json:"min_stay"`
	Priority     int                `json:"priority"`
	CreatedAt    time.Time          `json:"created_at"`
}

type catalogFixtures struct {
	Properties []propertyFixture `json:"properties"`
	RatePlans  []ratePlanFixture `json:"rate_plans"`
}

func loadCatalogFixtures(repo *memory.CatalogRepository, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fixtures catalogFixtures
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return err
	}
	for _, f := range fixtures.Properties {
		repo.SeedProperty(&catalog.Property{
			ID:       catalog.PropertyID(f.ID),
			TenantID: catalog.TenantID(f.TenantID),
			Slug:     f.Slug,
			Name:     f.Name,
			Capacity: catalog.Capacity{
				MaxGuests: f.MaxGuests,
				Beds:      f.Beds,
				Bathrooms: f.Bathrooms,
			},
			BasePrice: money.Must(f.BasePrice.Amount, f.BasePrice.Currency),
			Policies: catalog.Policies{
				CheckInTime:    f.Policies.CheckInTime,
				CheckOutTime:   f.Policies.CheckOutTime,
				Cancellation:   catalog.CancellationPolicy(f.Policies.CancellationPolicy),
				MinStay:        f.Policies.MinStay,
				MaxStay:        f.Policies.MaxStay,
				AllowsChildren: f.Policies.AllowsChildren,
				AllowsInfants:  f.Policies.AllowsInfants,
				AllowsPets:     f.Policies.AllowsPets,
			},
			Status: catalog.PropertyStatus(f.Status),
		})
	}
	for _, f := range fixtures.RatePlans {
		plan := &catalog.RatePlan{
			ID:            catalog.RatePlanID(f.ID),
			PropertyID:    catalog.PropertyID(f.PropertyID),
			Name:          f.Name,
			PricePerNight: money.Money{Amount: f.PricePerNight.Amount, Currency: f.PricePerNight.Currency},
			MinStay:       f.MinStay,
			Priority:      f.Priority,
			CreatedAt:     f.CreatedAt,
		}
		if f.StartDate != "" {
			if plan.StartDate, err = dates.Parse(f.StartDate); err != nil {
				return err
			}
		}
		if f.EndDate != "" {
			if plan.EndDate, err = dates.Parse(f.EndDate); err != nil {
				return err
			}
		}
		if len(f.DayModifiers) > 0 {
			plan.DayModifiers = make(map[time.Weekday]float64, len(f.DayModifiers))
			for key, mod := range f.DayModifiers {
				day, convErr := strconv.Atoi(key)
				if convErr != nil || day < 0 || day > 6 {
					continue
				}
				plan.DayModifiers[time.Weekday(day)] = mod
			}
		}
		repo.SeedRatePlan(plan)
	}
	return nil
}
