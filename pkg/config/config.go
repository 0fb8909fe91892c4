package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Firm holds the static identity fields stamped into every document payload.
type Firm struct {
	Name         string
	Address      string
	CityStateZip string
	Phone        string
	Fax          string
	Email        string
	AttorneyName string
	BarNumber    string
}

// Storage selects and configures the artifact store.
type Storage struct {
	Type            string // "supabase" | "s3" | "local"
	SupabaseURL     string
	SupabaseKey     string
	SupabaseBucket  string
	S3Bucket        string
	S3Region        string
	AWSAccessKey    string
	AWSSecretKey    string
	S3PublicBaseURL string
	LocalPath       string
	LocalBaseURL    string
}

// Config is the process configuration, read from the environment.
type Config struct {
	Port          string
	AppEnv        string
	DatabaseURL   string
	TokenTTL      time.Duration
	RenderURL     string
	RenderTimeout time.Duration
	RedisAddr     string
	RedisPassword string
	MileageRate   decimal.Decimal
	Storage       Storage
	Firm          Firm
}

// Load reads .env (if present) and the environment into a Config.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:          getenv("PORT", "3000"),
		AppEnv:        getenv("APP_ENV", "dev"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		TokenTTL:      duration("JWT_TTL", 12*time.Hour),
		RenderURL:     os.Getenv("RENDER_WEBHOOK_URL"),
		RenderTimeout: duration("RENDER_TIMEOUT", 90*time.Second),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		MileageRate:   decimalEnv("MILEAGE_RATE", decimal.RequireFromString("0.67")),
		Storage: Storage{
			Type:            getenv("STORAGE_TYPE", "supabase"),
			SupabaseURL:     os.Getenv("SUPABASE_URL"),
			SupabaseKey:     os.Getenv("SUPABASE_SERVICE_KEY"),
			SupabaseBucket:  getenv("SUPABASE_BUCKET", "case-documents"),
			S3Bucket:        os.Getenv("AWS_S3_BUCKET"),
			S3Region:        getenv("AWS_REGION", "us-east-1"),
			AWSAccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
			S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
			LocalPath:       getenv("STORAGE_LOCAL_PATH", "./storage/files"),
			LocalBaseURL:    getenv("STORAGE_LOCAL_BASE_URL", "/files"),
		},
		Firm: Firm{
			Name:         getenv("FIRM_NAME", "Cotton Law Firm"),
			Address:      os.Getenv("FIRM_ADDRESS"),
			CityStateZip: os.Getenv("FIRM_CITY_STATE_ZIP"),
			Phone:        os.Getenv("FIRM_PHONE"),
			Fax:          os.Getenv("FIRM_FAX"),
			Email:        os.Getenv("FIRM_EMAIL"),
			AttorneyName: os.Getenv("FIRM_ATTORNEY"),
			BarNumber:    os.Getenv("FIRM_BAR_NUMBER"),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func decimalEnv(key string, def decimal.Decimal) decimal.Decimal {
	if d, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
