package main

import (
	"context"

	"gotour/internal/aviation"
	"gotour/internal/bookings/aggregator"
	"gotour/internal/bookings/events"
	"gotour/internal/bookings/handler"
	"gotour/internal/bookings/reference"
	"gotour/internal/bookings/repository"
	"gotour/internal/bookings/service"
	"gotour/internal/bookings/validator"
	"gotour/pkg/app"
	"gotour/pkg/config"
	"gotour/pkg/kafka"
	kafka_config "gotour/pkg/kafka/config"
	kafka_middleware "gotour/pkg/kafka/middleware"
	"gotour/pkg/metrics"
	"gotour/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	publisher := initPublisher(cfg, m)
	bookingService := initServices(cfg, m, publisher)

	serverApp := app.NewApplication(cfg, m, reg)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log, cfg.DefaultLocale),
		handler.NewHealthHandler(cfg.Client.Mongo, redisCheck(cfg), cfg.Log),
	)
	serverApp.OnShutdown("events", publisher.Close)
	serverApp.OnShutdown("clients", func() error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

func initServices(cfg *config.Config, m *metrics.Metrics, publisher events.Publisher) service.BookingService {
	repos := make(map[model.BookingKind]repository.BookingRepository, len(model.BookingKinds))
	for _, kind := range model.BookingKinds {
		repos[kind] = repository.NewMongoBookingRepository(cfg, kind)
	}

	bookingService := service.NewBookingService(service.Dependencies{
		Repos:      repos,
		Subjects:   repository.NewMongoSubjectRepository(cfg),
		Flights:    initFlightProvider(cfg, m),
		Validator:  validator.NewBookingValidator(cfg.Log),
		Publisher:  publisher,
		References: reference.New(),
		Metrics:    m,
		AggregatorOptions: []aggregator.Option{
			aggregator.WithRetry(model.KindHotel, aggregator.FixedRetry{
				Retries: cfg.HotelFetchRetries,
				Delay:   cfg.HotelRetryDelay,
			}),
		},
	}, cfg)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

func initFlightProvider(cfg *config.Config, m *metrics.Metrics) aviation.Provider {
	if cfg.AviationBaseURL == "" {
		cfg.Log.Info("Aviation provider not configured, unknown flights cannot be synthesized")
		return aviation.Disabled{}
	}

	var provider aviation.Provider = aviation.NewHTTPProvider(cfg.AviationBaseURL, cfg.AviationAPIKey, cfg.AviationTimeout, m, cfg.Log)
	if cfg.Client.Redis != nil {
		provider = aviation.NewCachedProvider(provider, aviation.NewRedisCache(cfg.Client.Redis), cfg.FlightCacheTTL, m, cfg.Log)
		cfg.Log.Info("Flight lookups cached in Redis", "ttl", cfg.FlightCacheTTL)
	}
	return provider
}

func initPublisher(cfg *config.Config, m *metrics.Metrics) events.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.Nop{}
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.BookingEventsTopic, kafkaCfg.BookingEventsDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}
	return events.NewKafkaPublisher(producer)
}

func redisCheck(cfg *config.Config) handler.CacheCheck {
	if cfg.Client.Redis == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return cfg.Client.Redis.Ping(ctx).Err()
	}
}
