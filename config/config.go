package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StoreSource describes one store and where its export lives.
type StoreSource struct {
	Name       string `yaml:"name"`
	Short      string `yaml:"short"`
	DealerCode string `yaml:"dealer"`
	ExportFile string `yaml:"export"`
	BucketKey  string `yaml:"bucket_key"`
}

// Config holds all application configuration loaded from environment variables
// and the optional stores file.
type Config struct {
	ExportDir     string
	WorkbookPath  string
	CSVOutputPath string
	StoresFile    string
	Stores        []StoreSource

	DBDriver         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MySQLDSN         string
	SQLitePath       string

	ListenAddr string
	LogLevel   string
	LogFormat  string
	CacheSize  int

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	OMSBaseURL   string
	RollDays     int
	SellDays     int
	AddDateStamp bool
	ChromeBin    string

	BucketEndpoint  string
	BucketRegion    string
	BucketName      string
	BucketPrefix    string
	BucketAccessKey string
	BucketSecretKey string
	BucketUseSSL    bool
	PublishKey      string

	TradeFeeAmount string
}

type storesFile struct {
	Stores []StoreSource `yaml:"stores"`
}

// DefaultStores are the four stores the exports come from, in tab order.
func DefaultStores() []StoreSource {
	return []StoreSource{
		{Name: "Concord", Short: "CN", DealerCode: "3768", ExportFile: "VinpipeReport.xls", BucketKey: "VinpipeReport.xls"},
		{Name: "Winston", Short: "WS", DealerCode: "2755", ExportFile: "VinpipeReport.xls (1)", BucketKey: "VinpipeReport.xls (1)"},
		{Name: "Lake", Short: "LN", DealerCode: "3919", ExportFile: "VinpipeReport.xls (2)", BucketKey: "VinpipeReport.xls (2)"},
		{Name: "Hickory", Short: "HK", DealerCode: "5544", ExportFile: "VinpipeReport.xls (3)", BucketKey: "VinpipeReport.xls (3)"},
	}
}

// Load reads the .env file, the environment and, when STORES_FILE is set, the
// YAML store list.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		ExportDir:     getEnv("EXPORT_DIR", "./files"),
		WorkbookPath:  getEnv("WORKBOOK_PATH", ""),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/inventory.csv"),
		StoresFile:    getEnv("STORES_FILE", ""),

		DBDriver:         getEnv("DB_DRIVER", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vinpipe"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vinpipe"),
		PostgresDB:       getEnv("POSTGRES_DB", "inventory"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MySQLDSN:         getEnv("MYSQL_DSN", ""),
		SQLitePath:       getEnv("SQLITE_PATH", "./output/inventory.db"),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "console"),
		CacheSize:  getEnvInt("CACHE_SIZE", 128),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		OMSBaseURL:   getEnv("OMS_BASE_URL", "https://oms-b.nnanet.com"),
		RollDays:     getEnvInt("ROLL_DAYS", 90),
		SellDays:     getEnvInt("SELL_DAYS", 26),
		AddDateStamp: getEnvBool("ADD_DATE_STAMP", false),
		ChromeBin:    getEnv("CHROME_BIN", ""),

		BucketEndpoint:  getEnv("BUCKET_ENDPOINT", ""),
		BucketRegion:    getEnv("BUCKET_REGION", "us-east-1"),
		BucketName:      getEnv("BUCKET_NAME", ""),
		BucketPrefix:    getEnv("BUCKET_PREFIX", ""),
		BucketAccessKey: getEnv("BUCKET_ACCESS_KEY_ID", ""),
		BucketSecretKey: getEnv("BUCKET_SECRET_ACCESS_KEY", ""),
		BucketUseSSL:    getEnvBool("BUCKET_USE_SSL", true),
		PublishKey:      getEnv("PUBLISH_KEY", "inventory.html"),

		TradeFeeAmount: getEnv("TRADE_FEE_AMOUNT", "0"),
	}

	cfg.Stores = DefaultStores()
	if cfg.StoresFile != "" {
		stores, err := LoadStores(cfg.StoresFile)
		if err != nil {
			return nil, err
		}
		cfg.Stores = stores
	}
	return cfg, nil
}

// LoadStores reads a YAML file of the form:
//
//	stores:
//	  - name: Concord
//	    short: CN
//	    dealer: "3768"
//	    export: VinpipeReport.xls
func LoadStores(path string) ([]StoreSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read stores file: %w", err)
	}
	var sf storesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("config: parse stores file: %w", err)
	}
	if len(sf.Stores) == 0 {
		return nil, fmt.Errorf("config: stores file %s lists no stores", path)
	}
	for i, s := range sf.Stores {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.ExportFile) == "" {
			return nil, fmt.Errorf("config: store %d needs name and export", i+1)
		}
		if s.Short == "" {
			sf.Stores[i].Short = strings.ToUpper(s.Name)
		}
		if s.BucketKey == "" {
			sf.Stores[i].BucketKey = s.ExportFile
		}
	}
	return sf.Stores, nil
}

// ExportPath returns the local path of a store's export.
func (c *Config) ExportPath(s StoreSource) string {
	if filepath.IsAbs(s.ExportFile) {
		return s.ExportFile
	}
	return filepath.Join(c.ExportDir, s.ExportFile)
}

// DSN returns the data source name for the configured snapshot driver.
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "mysql":
		return c.MySQLDSN
	case "sqlite":
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// BucketEnabled reports whether bucket settings are complete.
func (c *Config) BucketEnabled() bool {
	return c.BucketName != "" && c.BucketAccessKey != "" && c.BucketSecretKey != ""
}

// CookieFor returns the OMS session cookie for a store from <NAME>_COOKIE.
func CookieFor(storeName string) string {
	return os.Getenv(strings.ToUpper(storeName) + "_COOKIE")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
