package config

const EnvPrefix = "WOLF"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "WOLF_APP_ENV"
	EnvPort                   = "WOLF_APP_PORT"
	EnvDBDSN                  = "WOLF_DB_DSN"
	EnvDBHost                 = "WOLF_DB_HOST"
	EnvDBUser                 = "WOLF_DB_USER"
	EnvDBName                 = "WOLF_DB_NAME"
	EnvRedisURL               = "WOLF_REDIS_URL"
	EnvJWTSecret              = "WOLF_JWT_SECRET"
	EnvJWTIssuer              = "WOLF_JWT_ISSUER"
	EnvJWTExpMins             = "WOLF_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "WOLF_REFRESH_TOKEN_TTL_MINUTES"
	EnvCheckoutAllowGuest     = "WOLF_CHECKOUT_ALLOW_GUEST"
	EnvCheckoutReservationTTL = "WOLF_CHECKOUT_RESERVATION_TTL"
	EnvWarehouseCity          = "WOLF_WAREHOUSE_CITY"
	EnvJNTTimeout             = "WOLF_JNT_TIMEOUT"
	EnvCronLockTTL            = "WOLF_CRON_LOCK_TTL"
	EnvCronJobTimeout         = "WOLF_CRON_JOB_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
