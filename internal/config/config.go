package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	AutoMigrate bool
	LogLevel    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DNSResolver     string
	DoHEndpoint     string
	WhoisServer     string
	IPInfoEndpoint  string
	GeoEndpoint     string
	ArchiveEndpoint string

	RekorURL string

	ServiceTag    string
	ConsentPolicy string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:        envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		AutoMigrate:     envBoolDefault("DB_AUTO_MIGRATE", true),
		LogLevel:        envDefault("LOG_LEVEL", "info"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envIntDefault("REDIS_DB", 0),
		DNSResolver:     os.Getenv("DNS_RESOLVER"),
		DoHEndpoint:     os.Getenv("DOH_ENDPOINT"),
		WhoisServer:     os.Getenv("WHOIS_SERVER"),
		IPInfoEndpoint:  os.Getenv("IPINFO_ENDPOINT"),
		GeoEndpoint:     os.Getenv("GEO_ENDPOINT"),
		ArchiveEndpoint: os.Getenv("ARCHIVE_ENDPOINT"),
		RekorURL:        os.Getenv("REKOR_URL"),
		ServiceTag:      envDefault("SERVICE_TAG", "lexatod"),
		ConsentPolicy:   os.Getenv("CONSENT_POLICY_FILE"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
