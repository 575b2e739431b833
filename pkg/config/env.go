package config

const EnvPrefix = "RECURLYGW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DisplayLive = "live"
	DisplayAll  = "all"

	DefaultListPageSize    = 50
	DefaultInvoicePageSize = 20
)

const (
	EnvAppEnv        = "RECURLYGW_APP_ENV"
	EnvPort          = "RECURLYGW_APP_PORT"
	EnvDBDSN         = "RECURLYGW_DB_DSN"
	EnvDBHost        = "RECURLYGW_DB_HOST"
	EnvDBUser        = "RECURLYGW_DB_USER"
	EnvDBName        = "RECURLYGW_DB_NAME"
	EnvRedisURL      = "RECURLYGW_REDIS_URL"
	EnvJWTSecret     = "RECURLYGW_JWT_SECRET"
	EnvJWTIssuer     = "RECURLYGW_JWT_ISSUER"
	EnvRecurlyKey    = "RECURLYGW_RECURLY_PRIVATE_KEY"
	EnvRecurlyDomain = "RECURLYGW_RECURLY_SUBDOMAIN"
	EnvListenerKey   = "RECURLYGW_PUSH_LISTENER_KEY"
	EnvEntityType    = "RECURLYGW_ENTITY_TYPE"
	EnvMode          = "RECURLYGW_SUBSCRIPTION_MODE"
	EnvPlans         = "RECURLYGW_SUBSCRIPTION_PLANS"
	EnvDisplay       = "RECURLYGW_SUBSCRIPTION_DISPLAY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
