package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string

	CurveID                 string
	AESKeyBits              int
	ServicePrivateKeyBase64 string

	PostgresDSN string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	S3Endpoint         string
	S3Bucket           string

	PolicyBundlePath string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitMaxKeys       int
	RateLimitFailClosed    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	return Config{
		HTTPAddr:                envDefault("HTTP_ADDR", ":8080"),
		CurveID:                 envDefault("ECC_CURVE", "P-256"),
		AESKeyBits:              envIntDefault("AES_KEY_BITS", 256),
		ServicePrivateKeyBase64: os.Getenv("SERVICE_PRIVATE_KEY_BASE64"),
		PostgresDSN:             os.Getenv("POSTGRES_DSN"),
		AWSRegion:               os.Getenv("AWS_REGION"),
		AWSAccessKeyID:          os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:      os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSSessionToken:         os.Getenv("AWS_SESSION_TOKEN"),
		S3Endpoint:              os.Getenv("S3_ENDPOINT"),
		S3Bucket:                os.Getenv("S3_BUCKET"),
		PolicyBundlePath:        os.Getenv("POLICY_BUNDLE_PATH"),
		RateLimitRequests:       envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:  envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxKeys:        envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RateLimitFailClosed:     envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
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
	if err != nil || parsed <= 0 {
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
