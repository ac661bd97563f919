package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Checkout      CheckoutConfig
	Stripe        StripeConfig
	Courier       CourierConfig
	Warehouse     WarehouseConfig
	Admin         AdminConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	RateLimit     RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cron.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WOLF_APP_ENV" required:"true"`
	Port         string `envconfig:"WOLF_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WOLF_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"WOLF_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"WOLF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"WOLF_SERVICE_KIND" default:"api"`
	// CORSOrigins are allowed in addition to the storefront (WOLF_FRONTEND_URL).
	CORSOrigins []string `envconfig:"WOLF_CORS_ALLOWED_ORIGINS"`
}

type DBConfig struct {
	DSN                string        `envconfig:"WOLF_DB_DSN"`
	SlowQueryThreshold time.Duration `envconfig:"WOLF_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`

	LegacyHost     string `envconfig:"WOLF_DB_HOST"`
	LegacyPort     int    `envconfig:"WOLF_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WOLF_DB_USER"`
	LegacyPassword string `envconfig:"WOLF_DB_PASSWORD"`
	LegacyName     string `envconfig:"WOLF_DB_NAME"`
	LegacySSLMode  string `envconfig:"WOLF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WOLF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WOLF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WOLF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WOLF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WOLF_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WOLF_REDIS_ADDR"`
	Password     string        `envconfig:"WOLF_REDIS_PASSWORD"`
	DB           int           `envconfig:"WOLF_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WOLF_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WOLF_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WOLF_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WOLF_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WOLF_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"WOLF_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"WOLF_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"WOLF_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"WOLF_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"WOLF_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"WOLF_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"WOLF_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"WOLF_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"WOLF_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate        bool `envconfig:"WOLF_AUTO_MIGRATE" default:"false"`
	BootstrapAdmin     bool `envconfig:"WOLF_BOOTSTRAP_ADMIN_ON_START" default:"false"`
	ExposeErrorDetails bool `envconfig:"WOLF_EXPOSE_ERROR_DETAILS" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL  time.Duration `envconfig:"WOLF_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	ConsumerIdempotencyTTL time.Duration `envconfig:"WOLF_EVENTING_CONSUMER_IDEMPOTENCY_TTL" default:"168h"`
}

// CheckoutConfig controls order creation and the reservation window.
type CheckoutConfig struct {
	AllowGuest     bool          `envconfig:"WOLF_CHECKOUT_ALLOW_GUEST" default:"false"`
	ReservationTTL time.Duration `envconfig:"WOLF_CHECKOUT_RESERVATION_TTL" default:"30m"`
	FrontendURL    string        `envconfig:"WOLF_FRONTEND_URL" default:"http://localhost:3000"`
	Currency       string        `envconfig:"WOLF_CHECKOUT_CURRENCY" default:"usd"`
}

type StripeConfig struct {
	APIKey         string `envconfig:"WOLF_STRIPE_API_KEY"`
	Secret         string `envconfig:"WOLF_STRIPE_SECRET"`
	Env            string `envconfig:"WOLF_STRIPE_ENV" default:"test"`
	MinChargeCents int64  `envconfig:"WOLF_STRIPE_MIN_CHARGE_CENTS" default:"50"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CourierConfig holds the J&T Express credentials.
type CourierConfig struct {
	BaseURL       string        `envconfig:"WOLF_JNT_BASE_URL" default:"https://openapi.jtjms-sa.com/webopenplatformapi/api"`
	APIAccount    string        `envconfig:"WOLF_JNT_API_ACCOUNT"`
	APIKey        string        `envconfig:"WOLF_JNT_API_KEY"`
	Secret        string        `envconfig:"WOLF_JNT_SECRET"`
	CustomerCode  string        `envconfig:"WOLF_JNT_CUSTOMER_CODE"`
	WebhookSecret string        `envconfig:"WOLF_JNT_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"WOLF_JNT_TIMEOUT" default:"10s"`
}

// WarehouseConfig is the fixed sender identity used for every shipment.
type WarehouseConfig struct {
	Name        string `envconfig:"WOLF_WAREHOUSE_NAME" default:"2Wolf Warehouse"`
	Mobile      string `envconfig:"WOLF_WAREHOUSE_MOBILE"`
	Phone       string `envconfig:"WOLF_WAREHOUSE_PHONE"`
	Email       string `envconfig:"WOLF_WAREHOUSE_EMAIL"`
	CountryCode string `envconfig:"WOLF_WAREHOUSE_COUNTRY_CODE" default:"AE"`
	Country     string `envconfig:"WOLF_WAREHOUSE_COUNTRY" default:"United Arab Emirates"`
	City        string `envconfig:"WOLF_WAREHOUSE_CITY" default:"Dubai"`
	Area        string `envconfig:"WOLF_WAREHOUSE_AREA"`
	Address     string `envconfig:"WOLF_WAREHOUSE_ADDRESS"`
	PostCode    string `envconfig:"WOLF_WAREHOUSE_POSTCODE"`
	Currency    string `envconfig:"WOLF_WAREHOUSE_CURRENCY" default:"AED"`
}

type AdminConfig struct {
	Email    string `envconfig:"WOLF_ADMIN_EMAIL" default:"2wolf@gmail.com"`
	Password string `envconfig:"WOLF_ADMIN_PASSWORD"`
	Name     string `envconfig:"WOLF_ADMIN_NAME" default:"2Wolf Admin"`
}

// CronConfig drives the cron worker. RetentionEvery spaces out outbox
// pruning; the reservation reaper runs every Interval.
type CronConfig struct {
	Interval       time.Duration `envconfig:"WOLF_CRON_INTERVAL" default:"1m"`
	LockKey        string        `envconfig:"WOLF_CRON_LOCK_KEY" default:"wolf:cron:lock"`
	LockTTL        time.Duration `envconfig:"WOLF_CRON_LOCK_TTL" default:"5m"`
	JobTimeout     time.Duration `envconfig:"WOLF_CRON_JOB_TIMEOUT" default:"2m"`
	RetentionEvery time.Duration `envconfig:"WOLF_CRON_RETENTION_EVERY" default:"1h"`
}

// validate keeps a single job inside the lock lease.
func (c CronConfig) validate() error {
	if c.JobTimeout > 0 && c.LockTTL > 0 && c.JobTimeout >= c.LockTTL {
		return fmt.Errorf("WOLF_CRON_JOB_TIMEOUT (%s) must be shorter than WOLF_CRON_LOCK_TTL (%s)", c.JobTimeout, c.LockTTL)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WOLF_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"WOLF_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic    string `envconfig:"WOLF_PUBSUB_ORDERS_TOPIC" default:"wolf-order-events"`
	ShipmentsTopic string `envconfig:"WOLF_PUBSUB_SHIPMENTS_TOPIC" default:"wolf-shipment-events"`

	AnalyticsSubscription string `envconfig:"WOLF_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"wolf-analytics"`
}

// BigQueryConfig names the dataset and tables fed by the analytics worker.
type BigQueryConfig struct {
	Dataset             string `envconfig:"WOLF_BIGQUERY_DATASET" default:"wolf_analytics"`
	OrderEventsTable    string `envconfig:"WOLF_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
	ShipmentEventsTable string `envconfig:"WOLF_BIGQUERY_SHIPMENT_EVENTS_TABLE" default:"shipment_events"`
	BatchSize           int    `envconfig:"WOLF_BIGQUERY_BATCH_SIZE" default:"1"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"WOLF_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"WOLF_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"WOLF_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"WOLF_OUTBOX_RETENTION" default:"720h"`
	RetentionBatch int           `envconfig:"WOLF_OUTBOX_RETENTION_BATCH" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

// RateLimitConfig throttles credential endpoints per client IP and per
// email, and guest order placement per client IP.
type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"WOLF_RL_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"WOLF_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"WOLF_RL_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"WOLF_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"WOLF_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"WOLF_RL_REGISTER_EMAIL_LIMIT" default:"3"`
	GuestOrderWindow   time.Duration `envconfig:"WOLF_RL_GUEST_ORDER_WINDOW" default:"10m"`
	GuestOrderIPLimit  int           `envconfig:"WOLF_RL_GUEST_ORDER_IP_LIMIT" default:"15"`
}
