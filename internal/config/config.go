package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "FuelSupport"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultBaseURL        = "http://localhost:3000"
	defaultFoodBankName   = "Lewisham Food Bank"
	defaultFoodBankPhone  = "020-XXXX-XXXX"
	defaultUploadDir      = "uploads"
	defaultLinkTTL        = 48 * time.Hour
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultUploadPerMin   = 10

	linkTTLHoursEnvVar     = "LINK_TTL_HOURS"
	linkTTLDurEnvVar       = "LINK_TTL"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// SMS delivery modes. The mode is decided once at load time from the shape of
// the configured credentials and never changes for the lifetime of the process.
const (
	SMSModeTwilio    = "twilio"
	SMSModeSimulated = "simulated"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	// BaseURL is the public origin embedded in upload links sent to clients.
	BaseURL       string
	FoodBankName  string
	FoodBankPhone string

	UploadDir string
	LinkTTL   time.Duration

	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	UploadRatePerMin int

	// StaffKeyHash is a bcrypt hash of the staff API key. Empty leaves the
	// staff routes unprotected, which is only acceptable in development.
	StaffKeyHash string

	SMSMode          string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		BaseURL:          strings.TrimRight(getEnv("BASE_URL", defaultBaseURL), "/"),
		FoodBankName:     getEnv("FOOD_BANK_NAME", defaultFoodBankName),
		FoodBankPhone:    getEnv("FOOD_BANK_PHONE", defaultFoodBankPhone),
		UploadDir:        getEnv("UPLOAD_DIR", defaultUploadDir),
		LinkTTL:          defaultLinkTTL,
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		UploadRatePerMin: defaultUploadPerMin,
		StaffKeyHash:     os.Getenv("STAFF_API_KEY_HASH"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
	}

	if v := os.Getenv(linkTTLHoursEnvVar); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", linkTTLHoursEnvVar, err)
		}
		cfg.LinkTTL = time.Duration(hours) * time.Hour
	} else if v := os.Getenv(linkTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", linkTTLDurEnvVar, err)
		}
		cfg.LinkTTL = d
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if v := os.Getenv("UPLOAD_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UPLOAD_RATE_PER_MIN: %w", err)
		}
		cfg.UploadRatePerMin = n
	}

	cfg.SMSMode = detectSMSMode(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if cfg.SMSMode == SMSModeSimulated {
		cfg.TwilioAccountSID = ""
		cfg.TwilioAuthToken = ""
		cfg.TwilioFromNumber = ""
	}

	if cfg.LinkTTL <= 0 {
		return Config{}, fmt.Errorf("link TTL must be positive")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// detectSMSMode picks live delivery only when all three Twilio credentials
// look genuine; anything else (missing, truncated, or placeholder values)
// falls back to simulated delivery so a misconfigured deployment never
// attempts real sends with junk credentials.
func detectSMSMode(sid, token, from string) string {
	if sid == "" || token == "" || from == "" {
		return SMSModeSimulated
	}
	if !strings.HasPrefix(sid, "AC") || len(token) < 20 || !strings.HasPrefix(from, "+") {
		return SMSModeSimulated
	}
	lower := strings.ToLower(sid)
	if strings.Contains(lower, "your_") || strings.Contains(lower, "placeholder") {
		return SMSModeSimulated
	}
	return SMSModeTwilio
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
