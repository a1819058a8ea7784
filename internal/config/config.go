package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Operators OperatorsConfig
	Retell    RetellConfig
	Webhook   WebhookConfig
	Calls     CallsConfig
	Outcome   OutcomeConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// AutoMigrate applies the embedded schema on startup.
	AutoMigrate bool
}

// RedisConfig is only required when outbound calls are capped.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// OperatorsConfig lists the dashboard logins. Password values are bcrypt hashes.
type OperatorsConfig struct {
	AdminUsername     string
	AdminPasswordHash string

	// Operator login is optional.
	OperatorUsername     string
	OperatorPasswordHash string
}

type RetellConfig struct {
	APIKey     string
	AgentID    string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
}

// Enabled reports whether outbound calls can be placed.
func (r RetellConfig) Enabled() bool {
	return r.APIKey != "" && r.AgentID != "" && r.FromNumber != ""
}

type WebhookConfig struct {
	// Token, when set, must be presented in X-Webhook-Token on provider callbacks.
	Token string
}

type CallsConfig struct {
	// MaxConcurrent caps in-flight outbound calls. Zero disables the cap.
	MaxConcurrent int
	SlotTTL       time.Duration
}

// OutcomeConfig carries the conversation-occurred thresholds.
type OutcomeConfig struct {
	MinTranscriptChars int
	MinDurationSeconds int
}

const defaultRetellBaseURL = "https://api.retellai.com"

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	{
		b, err := optionalBool("DB_AUTO_MIGRATE")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.DB.AutoMigrate = b
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	{
		n, err := optionalInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	{
		n, err := optionalInt("REDIS_DB")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Operators.AdminUsername = strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	c.Operators.AdminPasswordHash = strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH"))
	c.Operators.OperatorUsername = strings.TrimSpace(os.Getenv("OPERATOR_USERNAME"))
	c.Operators.OperatorPasswordHash = strings.TrimSpace(os.Getenv("OPERATOR_PASSWORD_HASH"))

	c.Retell.APIKey = os.Getenv("RETELL_API_KEY")
	c.Retell.AgentID = strings.TrimSpace(os.Getenv("RETELL_AGENT_ID"))
	c.Retell.FromNumber = strings.TrimSpace(os.Getenv("RETELL_FROM_NUMBER"))
	c.Retell.BaseURL = strings.TrimSpace(os.Getenv("RETELL_BASE_URL"))
	c.Retell.Timeout = mustDuration("RETELL_TIMEOUT")

	c.Webhook.Token = os.Getenv("WEBHOOK_TOKEN")

	{
		n, err := optionalInt("CALLS_MAX_CONCURRENT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Calls.MaxConcurrent = n
	}
	c.Calls.SlotTTL = mustDuration("CALLS_SLOT_TTL")

	{
		n, err := optionalInt("OUTCOME_MIN_TRANSCRIPT_CHARS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Outcome.MinTranscriptChars = n
	}
	{
		n, err := optionalInt("OUTCOME_MIN_DURATION_SECONDS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Outcome.MinDurationSeconds = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Port < 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be >= 0, got %d", c.Redis.DB))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Operators.AdminUsername == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME is required"))
	}
	if c.Operators.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required"))
	}
	if (c.Operators.OperatorUsername == "") != (c.Operators.OperatorPasswordHash == "") {
		errs = append(errs, errors.New("OPERATOR_USERNAME and OPERATOR_PASSWORD_HASH must be set together"))
	}
	if c.Operators.OperatorUsername != "" && c.Operators.OperatorUsername == c.Operators.AdminUsername {
		errs = append(errs, errors.New("OPERATOR_USERNAME must differ from ADMIN_USERNAME"))
	}

	// Retell is all-or-nothing: a partial setup is a deploy mistake, not a feature toggle.
	retellSet := 0
	for _, v := range []string{c.Retell.APIKey, c.Retell.AgentID, c.Retell.FromNumber} {
		if v != "" {
			retellSet++
		}
	}
	if retellSet > 0 && retellSet < 3 {
		errs = append(errs, errors.New("RETELL_API_KEY, RETELL_AGENT_ID and RETELL_FROM_NUMBER must be set together"))
	}
	if retellSet == 0 && c.IsProduction() {
		errs = append(errs, errors.New("RETELL_API_KEY, RETELL_AGENT_ID and RETELL_FROM_NUMBER are required in production"))
	}
	if c.Retell.BaseURL == "" {
		c.Retell.BaseURL = defaultRetellBaseURL
	}
	if c.Retell.Timeout <= 0 {
		c.Retell.Timeout = 15 * time.Second
	}

	if c.IsProduction() && c.Webhook.Token == "" {
		errs = append(errs, errors.New("WEBHOOK_TOKEN is required in production"))
	}

	if c.Calls.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("CALLS_MAX_CONCURRENT must be >= 0, got %d", c.Calls.MaxConcurrent))
	}
	if c.Calls.MaxConcurrent > 0 && c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required when CALLS_MAX_CONCURRENT > 0"))
	}
	if c.Calls.SlotTTL <= 0 {
		// Long enough to cover a full call; the ended webhook normally frees it first.
		c.Calls.SlotTTL = 15 * time.Minute
	}

	if c.Outcome.MinTranscriptChars < 0 {
		errs = append(errs, fmt.Errorf("OUTCOME_MIN_TRANSCRIPT_CHARS must be >= 0, got %d", c.Outcome.MinTranscriptChars))
	} else if c.Outcome.MinTranscriptChars == 0 {
		c.Outcome.MinTranscriptChars = 10
	}
	if c.Outcome.MinDurationSeconds < 0 {
		errs = append(errs, fmt.Errorf("OUTCOME_MIN_DURATION_SECONDS must be >= 0, got %d", c.Outcome.MinDurationSeconds))
	} else if c.Outcome.MinDurationSeconds == 0 {
		c.Outcome.MinDurationSeconds = 10
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
