package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Carrier       CarrierConfig
	PaymentLedger PaymentLedgerConfig
	PaymentLink   PaymentLinkConfig
	Payments      PaymentsConfig
	Push          PushConfig
	AddressBook   AddressBookConfig
	Notifications NotificationsConfig
	Webhooks      WebhooksConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins is a comma separated allow list.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"STOREFRONT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
	OrdersSubscription string `envconfig:"STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION" default:"storefront-order-notifications"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeout time.Duration `envconfig:"STOREFRONT_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	Retention      time.Duration `envconfig:"STOREFRONT_OUTBOX_RETENTION" default:"168h"`
}

type CarrierConfig struct {
	BaseURL       string        `envconfig:"STOREFRONT_CARRIER_BASE_URL" default:"https://online-gateway.ghn.vn/shiip/public-api"`
	Token         string        `envconfig:"STOREFRONT_CARRIER_TOKEN"`
	ShopID        string        `envconfig:"STOREFRONT_CARRIER_SHOP_ID"`
	FromDistrict  int           `envconfig:"STOREFRONT_CARRIER_FROM_DISTRICT"`
	FromWard      string        `envconfig:"STOREFRONT_CARRIER_FROM_WARD"`
	FromName      string        `envconfig:"STOREFRONT_CARRIER_FROM_NAME" default:"Storefront"`
	FromPhone     string        `envconfig:"STOREFRONT_CARRIER_FROM_PHONE"`
	FromAddress   string        `envconfig:"STOREFRONT_CARRIER_FROM_ADDRESS"`
	Timeout       time.Duration `envconfig:"STOREFRONT_CARRIER_TIMEOUT" default:"10s"`
	DefaultWeight int           `envconfig:"STOREFRONT_CARRIER_DEFAULT_WEIGHT_GRAMS" default:"200"`
}

type PaymentLedgerConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_PAYMENT_LEDGER_BASE_URL"`
	APIKey  string        `envconfig:"STOREFRONT_PAYMENT_LEDGER_API_KEY"`
	Timeout time.Duration `envconfig:"STOREFRONT_PAYMENT_LEDGER_TIMEOUT" default:"10s"`
}

type PaymentLinkConfig struct {
	BankID      string `envconfig:"STOREFRONT_PAYMENT_BANK_ID"`
	AccountNo   string `envconfig:"STOREFRONT_PAYMENT_ACCOUNT_NO"`
	AccountName string `envconfig:"STOREFRONT_PAYMENT_ACCOUNT_NAME"`
}

type PaymentsConfig struct {
	MaxAttempts       int           `envconfig:"STOREFRONT_PAYMENTS_MAX_ATTEMPTS" default:"60"`
	ReconcileInterval time.Duration `envconfig:"STOREFRONT_RECONCILE_INTERVAL" default:"30s"`
	WebhookSecret     string        `envconfig:"STOREFRONT_PAYMENTS_WEBHOOK_SECRET"`
	DedupeTTL         time.Duration `envconfig:"STOREFRONT_PAYMENTS_DEDUPE_TTL" default:"72h"`
}

type PushConfig struct {
	BaseURL     string `envconfig:"STOREFRONT_PUSH_BASE_URL" default:"https://exp.host/--/api/v2/push/send"`
	AccessToken string `envconfig:"STOREFRONT_PUSH_ACCESS_TOKEN"`
}

type AddressBookConfig struct {
	BaseURL  string        `envconfig:"STOREFRONT_ADDRESS_BASE_URL" default:"https://online-gateway.ghn.vn/shiip/public-api/master-data"`
	Token    string        `envconfig:"STOREFRONT_ADDRESS_TOKEN"`
	CacheTTL time.Duration `envconfig:"STOREFRONT_ADDRESS_CACHE_TTL" default:"24h"`
}

type NotificationsConfig struct {
	OperatorUserID string        `envconfig:"STOREFRONT_OPERATOR_USER_ID"`
	Retention      time.Duration `envconfig:"STOREFRONT_NOTIFICATION_RETENTION" default:"720h"`
	LiveChannel    string        `envconfig:"STOREFRONT_NOTIFICATION_LIVE_CHANNEL" default:"live:operator"`
}

// OperatorID parses the configured operator account id. A blank value yields uuid.Nil.
func (n NotificationsConfig) OperatorID() (uuid.UUID, error) {
	raw := strings.TrimSpace(n.OperatorUserID)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", EnvOperatorUserID, err)
	}
	return id, nil
}

type WebhooksConfig struct {
	CarrierToken string `envconfig:"STOREFRONT_CARRIER_WEBHOOK_TOKEN"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
