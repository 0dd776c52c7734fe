package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvGatewaySecret = "GATEWAY_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvAviationBaseURL = "AVIATION_BASE_URL"
	EnvAviationAPIKey  = "AVIATION_API_KEY"
	EnvAviationTimeout = "AVIATION_TIMEOUT"
	EnvFlightCacheTTL  = "FLIGHT_CACHE_TTL"

	EnvHotelFetchRetries = "HOTEL_FETCH_RETRIES"
	EnvHotelRetryDelay   = "HOTEL_RETRY_DELAY"

	EnvDefaultLocale = "DEFAULT_LOCALE"
)
