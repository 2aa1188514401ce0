package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Filter   FilterConfig   `yaml:"filter"`
	Scan     ScanConfig     `yaml:"scan"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Email    EmailConfig    `yaml:"email"`
	Push     PushConfig     `yaml:"push"`
	Browser  BrowserConfig  `yaml:"browser"`

	Proxy       ProxyConfig `yaml:"-"`
	S3          S3Config    `yaml:"-"`
	DBPath      string      `yaml:"-"`
	DatabaseURL string      `yaml:"-"` // switches the listing store to Postgres
	RedisURL    string      `yaml:"-"`
	ResultsPath string      `yaml:"-"`
	HTTPAddr    string      `yaml:"-"`
	LogPath     string      `yaml:"-"`
}

type CatalogConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Source         string            `yaml:"source"`
	SearchPath     string            `yaml:"search_path"`
	Keyword        string            `yaml:"keyword"`
	PageSize       int               `yaml:"page_size"`
	MaxPages       int               `yaml:"max_pages"`
	States         []string          `yaml:"states"`
	ExtraParams    map[string]string `yaml:"extra_params"`
	DetailPath     string            `yaml:"detail_path"`
	LockoutMarkers []string          `yaml:"lockout_markers"`
	RateLimitMS    int               `yaml:"rate_limit_ms"`
	SearchTimeout  time.Duration     `yaml:"search_timeout"`
	Selectors      Selectors         `yaml:"selectors"`
}

// Selectors are CSS selector groups for the HTML strategy. They track the live
// site's markup and are expected to be edited in config, not code.
type Selectors struct {
	Container string `yaml:"container"`
	Title     string `yaml:"title"`
	Price     string `yaml:"price"`
	Location  string `yaml:"location"`
	EndTime   string `yaml:"end_time"`
	Link      string `yaml:"link"`
	Detail    string `yaml:"detail"`
}

type FilterConfig struct {
	Brands   []string `yaml:"brands"`
	Models   []string `yaml:"models"`
	MinPrice float64  `yaml:"min_price"`
	// MaxPrice <= 0 means no upper bound.
	MaxPrice float64 `yaml:"max_price"`
}

type ScanConfig struct {
	Source        string        `yaml:"source"`
	MaxResults    int           `yaml:"max_results"`
	Workers       int           `yaml:"workers"`
	MaxPages      int           `yaml:"max_pages"`
	DetailTimeout time.Duration `yaml:"detail_timeout"`
	ShipsPhrases  []string      `yaml:"ships_phrases"`
	NoShipPhrases []string      `yaml:"no_ship_phrases"`
}

type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	ScanCron string `yaml:"scan_cron"`
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	UseTLS   bool   `yaml:"use_tls"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	FromAddr string `yaml:"from_addr"`
	ToAddr   string `yaml:"to_addr"`
}

type PushConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Method   string         `yaml:"method"`
	Pushover PushoverConfig `yaml:"pushover"`
	Ntfy     NtfyConfig     `yaml:"ntfy"`
}

type PushoverConfig struct {
	APIToken string `yaml:"api_token"`
	UserKey  string `yaml:"user_key"`
}

type NtfyConfig struct {
	URL string `yaml:"url"`
}

// BrowserConfig controls the persistent Chromium profile used by -open.
type BrowserConfig struct {
	UserDataDir string   `yaml:"user_data_dir"`
	TimeoutMS   int      `yaml:"timeout_ms"`
	OpenURLs    []string `yaml:"open_urls"`
}

type ProxyConfig struct {
	URL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Loader returns a fresh Config. Cycles and scans call it on every invocation
// so edits to the YAML file apply without a restart.
type Loader func() (*Config, error)

// Static wraps an already-built Config.
func Static(cfg *Config) Loader {
	return func() (*Config, error) { return cfg, nil }
}

// Default returns the built-in settings used when the YAML file omits them.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:        "https://www.govdeals.com",
			Source:         "govdeals",
			SearchPath:     "/api/assets/search",
			Keyword:        "thinkpad",
			PageSize:       96,
			MaxPages:       1,
			ExtraParams:    map[string]string{"status": "open"},
			DetailPath:     "/en/assets/{id}",
			LockoutMarkers: []string{"captcha", "please log in", "access denied"},
			SearchTimeout:  15 * time.Second,
			Selectors:      DefaultSelectors(),
		},
		Filter: FilterConfig{
			Brands:   []string{"lenovo", "thinkpad"},
			MaxPrice: 9999,
		},
		Scan: ScanConfig{
			Source:        "scan",
			MaxResults:    96,
			Workers:       10,
			MaxPages:      2,
			DetailTimeout: 10 * time.Second,
		},
		Email: EmailConfig{
			SMTPPort: 587,
			UseTLS:   true,
		},
		Browser: BrowserConfig{
			UserDataDir: "browser_data",
			TimeoutMS:   60000,
			OpenURLs:    []string{
				"https://municibid.com/Browse/R3777816/Maine?ViewStyle=list&StatusFilter=active_only",
				"https://newhampshire.hibid.com/lots/computers---consumer-electronics---computers---laptops",
			},
		},
		Schedule: ScheduleConfig{Cron: "0 8 * * 2,5"},
		Push:     PushConfig{Method: "pushover"},
	}
}

func DefaultSelectors() Selectors {
	return Selectors{
		Container: `div.listingContainer, div.item-card, li.listing-item, [class*="AssetCard"], [class*="asset-card"], [class*="search-result-item"]`,
		Title:     `a.item-title, h3.listing-title, .title a, [class*="title"] a, [class*="Title"] a`,
		Price:     `.current-bid, .price, .bid-amount, [class*="bid"], [class*="price"]`,
		Location:  `.location, .agency-location, .city-state, [class*="location"]`,
		EndTime:   `.end-time, .auction-end, .closes`,
		Link:      `a[href]`,
		Detail:    `#itemDescription, .lot-description, .item-desc, .description-body, .tab-content, #tabItemDesc`,
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.loadFile(getEnv("CONFIG_PATH", "config.yaml")); err != nil {
		return nil, err
	}

	cfg.Proxy = ProxyConfig{URL: os.Getenv("PROXY_URL")}
	cfg.S3 = S3Config{
		Bucket:          os.Getenv("S3_BUCKET"),
		Region:          getEnv("S3_REGION", "us-east-1"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
	}
	cfg.DBPath = getEnv("DB_PATH", "listings.db")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.ResultsPath = getEnv("RESULTS_PATH", "scan_results.json")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":5000")
	cfg.LogPath = getEnv("LOG_PATH", "tracker.log")

	if v := os.Getenv("SCRAPE_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.ScanCron = v
	}
	cfg.Scan.Workers = getEnvInt("SCAN_WORKERS", cfg.Scan.Workers)
	cfg.Catalog.RateLimitMS = getEnvInt("RATE_LIMIT_MS", cfg.Catalog.RateLimitMS)

	cfg.normalize()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// normalize restores defaults for fields the YAML zeroed out.
func (c *Config) normalize() {
	def := Default()
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = def.Catalog.PageSize
	}
	if c.Catalog.MaxPages <= 0 {
		c.Catalog.MaxPages = def.Catalog.MaxPages
	}
	if c.Catalog.SearchTimeout <= 0 {
		c.Catalog.SearchTimeout = def.Catalog.SearchTimeout
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = def.Catalog.Source
	}
	if len(c.Catalog.LockoutMarkers) == 0 {
		c.Catalog.LockoutMarkers = def.Catalog.LockoutMarkers
	}
	s, d := &c.Catalog.Selectors, def.Catalog.Selectors
	orDefault(&s.Container, d.Container)
	orDefault(&s.Title, d.Title)
	orDefault(&s.Price, d.Price)
	orDefault(&s.Location, d.Location)
	orDefault(&s.EndTime, d.EndTime)
	orDefault(&s.Link, d.Link)
	orDefault(&s.Detail, d.Detail)
	if len(c.Filter.Brands) == 0 {
		c.Filter.Brands = def.Filter.Brands
	}
	if c.Scan.Source == "" {
		c.Scan.Source = def.Scan.Source
	}
	if c.Scan.MaxResults <= 0 {
		c.Scan.MaxResults = def.Scan.MaxResults
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = def.Scan.Workers
	}
	if c.Scan.MaxPages <= 0 {
		c.Scan.MaxPages = def.Scan.MaxPages
	}
	if c.Scan.DetailTimeout <= 0 {
		c.Scan.DetailTimeout = def.Scan.DetailTimeout
	}
	orDefault(&c.Browser.UserDataDir, def.Browser.UserDataDir)
	if c.Browser.TimeoutMS <= 0 {
		c.Browser.TimeoutMS = def.Browser.TimeoutMS
	}
}

func orDefault(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
