package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Recurly       RecurlyConfig
	Push          PushConfig
	Subscriptions SubscriptionsConfig
	Reconcile     ReconcileConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Subscriptions.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"RECURLYGW_APP_ENV" required:"true"`
	Port         string   `envconfig:"RECURLYGW_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RECURLYGW_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RECURLYGW_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RECURLYGW_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RECURLYGW_DB_DSN"`
	Driver string `envconfig:"RECURLYGW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RECURLYGW_DB_HOST"`
	LegacyPort     int    `envconfig:"RECURLYGW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RECURLYGW_DB_USER"`
	LegacyPassword string `envconfig:"RECURLYGW_DB_PASSWORD"`
	LegacyName     string `envconfig:"RECURLYGW_DB_NAME"`
	LegacySSLMode  string `envconfig:"RECURLYGW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECURLYGW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECURLYGW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECURLYGW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECURLYGW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RECURLYGW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RECURLYGW_REDIS_ADDR"`
	Password     string        `envconfig:"RECURLYGW_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECURLYGW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECURLYGW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECURLYGW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECURLYGW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECURLYGW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECURLYGW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RECURLYGW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RECURLYGW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RECURLYGW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RECURLYGW_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RECURLYGW_GCP_PROJECT_ID"`
}

// PubSubConfig is optional; an empty topic disables lifecycle event publication.
type PubSubConfig struct {
	LifecycleTopic string `envconfig:"RECURLYGW_PUBSUB_LIFECYCLE_TOPIC"`
}

// Enabled reports whether lifecycle events should be published.
func (p PubSubConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(p.LifecycleTopic) != "" && strings.TrimSpace(gcp.ProjectID) != ""
}

type RecurlyConfig struct {
	PrivateAPIKey   string        `envconfig:"RECURLYGW_RECURLY_PRIVATE_KEY"`
	Subdomain       string        `envconfig:"RECURLYGW_RECURLY_SUBDOMAIN"`
	BaseURL         string        `envconfig:"RECURLYGW_RECURLY_BASE_URL" default:"https://v3.recurly.com"`
	APIVersion      string        `envconfig:"RECURLYGW_RECURLY_API_VERSION" default:"v2021-02-25"`
	DefaultCurrency string        `envconfig:"RECURLYGW_RECURLY_DEFAULT_CURRENCY" default:"USD"`
	Timeout         time.Duration `envconfig:"RECURLYGW_RECURLY_TIMEOUT" default:"15s"`
}

type PushConfig struct {
	ListenerKey    string        `envconfig:"RECURLYGW_PUSH_LISTENER_KEY"`
	Logging        bool          `envconfig:"RECURLYGW_PUSH_LOGGING" default:"false"`
	IdempotencyTTL time.Duration `envconfig:"RECURLYGW_PUSH_IDEMPOTENCY_TTL" default:"24h"`
}

// ReconcileConfig drives the worker that re-reads stale account records from the gateway.
type ReconcileConfig struct {
	Interval   time.Duration `envconfig:"RECURLYGW_RECONCILE_INTERVAL" default:"6h"`
	StaleAfter time.Duration `envconfig:"RECURLYGW_RECONCILE_STALE_AFTER" default:"24h"`
	BatchSize  int           `envconfig:"RECURLYGW_RECONCILE_BATCH_SIZE" default:"250"`
	LockTTL    time.Duration `envconfig:"RECURLYGW_RECONCILE_LOCK_TTL" default:"1h"`
}

type SubscriptionsConfig struct {
	EntityType         string   `envconfig:"RECURLYGW_ENTITY_TYPE" default:"user"`
	Mode               string   `envconfig:"RECURLYGW_SUBSCRIPTION_MODE" default:"single"`
	CancelBehavior     string   `envconfig:"RECURLYGW_CANCEL_BEHAVIOR" default:"cancel"`
	UpgradeTimeframe   string   `envconfig:"RECURLYGW_UPGRADE_TIMEFRAME" default:"now"`
	DowngradeTimeframe string   `envconfig:"RECURLYGW_DOWNGRADE_TIMEFRAME" default:"renewal"`
	Plans              []string `envconfig:"RECURLYGW_SUBSCRIPTION_PLANS"`
	Display            string   `envconfig:"RECURLYGW_SUBSCRIPTION_DISPLAY" default:"live"`
	ListPageSize       int      `envconfig:"RECURLYGW_SUBSCRIPTION_PAGE_SIZE" default:"50"`
	InvoicePageSize    int      `envconfig:"RECURLYGW_INVOICE_PAGE_SIZE" default:"20"`
}

// PlanEntry is one row of the ordered enabled-plan set.
type PlanEntry struct {
	Code    string
	Enabled bool
}

// EnabledPlanSet is the ordered plan_code -> enabled map configured for the site.
type EnabledPlanSet []PlanEntry

// Codes returns the enabled plan codes in configured order.
func (s EnabledPlanSet) Codes() []string {
	codes := make([]string, 0, len(s))
	for _, entry := range s {
		if entry.Enabled {
			codes = append(codes, entry.Code)
		}
	}
	return codes
}

// Len counts enabled plans only.
func (s EnabledPlanSet) Len() int {
	return len(s.Codes())
}

func (s EnabledPlanSet) IsEnabled(code string) bool {
	for _, entry := range s {
		if entry.Code == code {
			return entry.Enabled
		}
	}
	return false
}

// EnabledPlans parses RECURLYGW_SUBSCRIPTION_PLANS entries of the form "code" or "code:false".
func (s SubscriptionsConfig) EnabledPlans() EnabledPlanSet {
	set := make(EnabledPlanSet, 0, len(s.Plans))
	seen := map[string]struct{}{}
	for _, raw := range s.Plans {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		code, flag, hasFlag := strings.Cut(raw, ":")
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		enabled := true
		if hasFlag {
			if parsed, err := strconv.ParseBool(strings.TrimSpace(flag)); err == nil {
				enabled = parsed
			}
		}
		set = append(set, PlanEntry{Code: code, Enabled: enabled})
	}
	return set
}

// LiveOnly reports whether expired subscriptions are hidden from listings.
func (s SubscriptionsConfig) LiveOnly() bool {
	return !strings.EqualFold(strings.TrimSpace(s.Display), DisplayAll)
}

// SubscriptionMode returns the parsed mode. Load has already validated it.
func (s SubscriptionsConfig) SubscriptionMode() enums.SubscriptionMode {
	mode, err := enums.ParseSubscriptionMode(s.Mode)
	if err != nil {
		return enums.SubscriptionModeSingle
	}
	return mode
}

// CancelPolicy returns the parsed cancel behavior, defaulting to cancel-at-renewal.
func (s SubscriptionsConfig) CancelPolicy() enums.CancelPolicy {
	policy, err := enums.ParseCancelPolicy(s.CancelBehavior)
	if err != nil {
		return enums.CancelPolicyCancel
	}
	return policy
}

// Timeframes returns the configured upgrade and downgrade timeframes.
func (s SubscriptionsConfig) Timeframes() (upgrade, downgrade enums.Timeframe) {
	upgrade, err := enums.ParseTimeframe(strings.TrimSpace(s.UpgradeTimeframe))
	if err != nil {
		upgrade = enums.TimeframeNow
	}
	downgrade, err = enums.ParseTimeframe(strings.TrimSpace(s.DowngradeTimeframe))
	if err != nil {
		downgrade = enums.TimeframeRenewal
	}
	return upgrade, downgrade
}

func (s *SubscriptionsConfig) validate() error {
	s.EntityType = strings.TrimSpace(s.EntityType)
	if s.EntityType == "" {
		return fmt.Errorf("%s is required", EnvEntityType)
	}
	if _, err := enums.ParseSubscriptionMode(s.Mode); err != nil {
		return fmt.Errorf("%s: %w", EnvMode, err)
	}
	if _, err := enums.ParseCancelPolicy(s.CancelBehavior); err != nil {
		return fmt.Errorf("RECURLYGW_CANCEL_BEHAVIOR: %w", err)
	}
	for _, tf := range []string{s.UpgradeTimeframe, s.DowngradeTimeframe} {
		if _, err := enums.ParseTimeframe(strings.TrimSpace(tf)); err != nil {
			return err
		}
	}
	if s.ListPageSize <= 0 {
		s.ListPageSize = DefaultListPageSize
	}
	if s.InvoicePageSize <= 0 {
		s.InvoicePageSize = DefaultInvoicePageSize
	}
	return nil
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
