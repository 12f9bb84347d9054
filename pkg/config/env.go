package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvDBDSN          = "STOREFRONT_DB_DSN"
	EnvDBDriver       = "STOREFRONT_DB_DRIVER"
	EnvDBHost         = "STOREFRONT_DB_HOST"
	EnvDBUser         = "STOREFRONT_DB_USER"
	EnvDBName         = "STOREFRONT_DB_NAME"
	EnvDBPassword     = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvJWTSecret      = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer      = "STOREFRONT_JWT_ISSUER"
	EnvGCPProjectID   = "STOREFRONT_GCP_PROJECT_ID"
	EnvOrdersTopic    = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvOrdersSub      = "STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvCarrierTimeout = "STOREFRONT_CARRIER_TIMEOUT"
	EnvOperatorUserID = "STOREFRONT_OPERATOR_USER_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
