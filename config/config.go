// Package config loads suite settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variable names.
const (
	KeyBaseURL         = "BASE_URL"
	KeyHeadless        = "HEADLESS"
	KeySlowMoMS        = "SLOW_MO_MS"
	KeyTimeoutMS       = "TIMEOUT_MS"
	KeyUser            = "TEST_USER"
	KeyPass            = "TEST_PASS"
	KeyBrowser         = "BROWSER"
	KeyReportsDir      = "REPORTS_DIR"
	KeyLogLevel        = "LOG_LEVEL"
	KeyInstallBrowsers = "INSTALL_BROWSERS"

	KeyS3Bucket         = "REPORTS_S3_BUCKET"
	KeyS3Prefix         = "REPORTS_S3_PREFIX"
	KeyS3Region         = "REPORTS_S3_REGION"
	KeyS3Endpoint       = "REPORTS_S3_ENDPOINT"
	KeyS3ForcePathStyle = "REPORTS_S3_FORCE_PATH_STYLE"

	KeyAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	KeyAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	KeyAWSSessionToken    = "AWS_SESSION_TOKEN"
)

const (
	// DefaultBaseURL is the application URL for local runs.
	DefaultBaseURL = "http://localhost:3000"

	// DefaultTimeoutMS is the default page timeout in milliseconds.
	DefaultTimeoutMS = 30000

	// DefaultBrowser is the default browser engine.
	DefaultBrowser = "chromium"

	// DefaultReportsDir is the default output directory for reports.
	DefaultReportsDir = "reports"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultEnvFile is the dotenv file read by Load when present.
	DefaultEnvFile = ".env"
)

// Config holds the suite settings.
type Config struct {
	BaseURL string
	// HeadlessRaw is the HEADLESS value as given; it is recorded with every result.
	HeadlessRaw string
	SlowMo      time.Duration
	Timeout     time.Duration
	Username    string
	Password    string

	Browser         string
	ReportsDir      string
	LogLevel        string
	InstallBrowsers bool

	S3 S3Config
}

// S3Config configures the optional upload of the reports directory.
type S3Config struct {
	Bucket         string
	Prefix         string
	Region         string
	EndpointURL    string
	ForcePathStyle bool

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Enabled reports whether uploads are configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Headless reports whether the browser runs without a window. Only "true" (in any
// case) enables headless mode.
func (c *Config) Headless() bool {
	return strings.EqualFold(strings.TrimSpace(c.HeadlessRaw), "true")
}

// Load reads the configuration from the process environment. Values from envFile are
// used for variables that are not set in the environment; a missing envFile is not an
// error. An empty envFile disables file loading.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		if err := readEnvFile(v, envFile); err != nil {
			return nil, err
		}
	}

	slowMo, err := intValue(v, KeySlowMoMS)
	if err != nil {
		return nil, err
	}
	timeout, err := intValue(v, KeyTimeoutMS)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:         strings.TrimSpace(v.GetString(KeyBaseURL)),
		HeadlessRaw:     v.GetString(KeyHeadless),
		SlowMo:          time.Duration(slowMo) * time.Millisecond,
		Timeout:         time.Duration(timeout) * time.Millisecond,
		Username:        strings.TrimSpace(v.GetString(KeyUser)),
		Password:        strings.TrimSpace(v.GetString(KeyPass)),
		Browser:         strings.ToLower(strings.TrimSpace(v.GetString(KeyBrowser))),
		ReportsDir:      v.GetString(KeyReportsDir),
		LogLevel:        v.GetString(KeyLogLevel),
		InstallBrowsers: v.GetBool(KeyInstallBrowsers),
		S3: S3Config{
			Bucket:         v.GetString(KeyS3Bucket),
			Prefix:         strings.Trim(v.GetString(KeyS3Prefix), "/"),
			Region:         v.GetString(KeyS3Region),
			EndpointURL:    v.GetString(KeyS3Endpoint),
			ForcePathStyle: v.GetBool(KeyS3ForcePathStyle),

			AccessKeyID:     v.GetString(KeyAWSAccessKeyID),
			SecretAccessKey: v.GetString(KeyAWSSecretAccessKey),
			SessionToken:    v.GetString(KeyAWSSessionToken),
		},
	}

	return cfg, nil
}

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		HeadlessRaw: "true",
		Timeout:     DefaultTimeoutMS * time.Millisecond,
		Browser:     DefaultBrowser,
		ReportsDir:  DefaultReportsDir,
		LogLevel:    DefaultLogLevel,
	}
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyHeadless, "true")
	v.SetDefault(KeySlowMoMS, "0")
	v.SetDefault(KeyTimeoutMS, strconv.Itoa(DefaultTimeoutMS))
	v.SetDefault(KeyUser, "")
	v.SetDefault(KeyPass, "")
	v.SetDefault(KeyBrowser, DefaultBrowser)
	v.SetDefault(KeyReportsDir, DefaultReportsDir)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyInstallBrowsers, false)
	v.SetDefault(KeyS3Bucket, "")
	v.SetDefault(KeyS3Prefix, "")
	v.SetDefault(KeyS3Region, "")
	v.SetDefault(KeyS3Endpoint, "")
	v.SetDefault(KeyS3ForcePathStyle, false)
	v.SetDefault(KeyAWSAccessKeyID, "")
	v.SetDefault(KeyAWSSecretAccessKey, "")
	v.SetDefault(KeyAWSSessionToken, "")
}

func readEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func intValue(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer number of milliseconds, got %q", key, raw)
	}
	return n, nil
}

// Validate checks the configuration for errors. Missing credentials are not an error;
// tests that need them are skipped.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s %q is not an absolute URL", KeyBaseURL, c.BaseURL))
	}
	if c.SlowMo < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeySlowMoMS))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyTimeoutMS))
	}
	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		errs = append(errs, fmt.Errorf("%s %q is not one of chromium, firefox, webkit", KeyBrowser, c.Browser))
	}
	if c.ReportsDir == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyReportsDir))
	}

	return errors.Join(errs...)
}

// HasCredentials reports whether both TEST_USER and TEST_PASS are set.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
