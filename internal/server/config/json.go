package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// Only the fields present in the file (non-zero after decoding) are copied
// into the runtime Config.
type JsonConfig struct {
	HTTPAddr         string         `json:"http_addr"`
	GRPCAddr         string         `json:"grpc_addr"`
	Storage          string         `json:"storage"`
	DatabaseDSN      string         `json:"database_dsn"`
	SecretKey        string         `json:"secret_key"`
	TokenTTL         timex.Duration `json:"token_ttl"`
	HashCost         int            `json:"hash_cost"`
	LockoutThreshold int            `json:"lockout_threshold"`
	LockoutDuration  timex.Duration `json:"lockout_duration"`
	ResetTokenTTL    timex.Duration `json:"reset_token_ttl"`
	NotifyTimeout    timex.Duration `json:"notify_timeout"`
	LogLevel         string         `json:"log_level"`
	CORSOrigins      []string       `json:"cors_origins"`
	RedisAddr        string         `json:"redis_addr"`
	Notifier         string         `json:"notifier"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	OTelEndpoint     string         `json:"otel_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag, or by GOPHAUTH_CONFIG, into config. Without either nothing
// is loaded. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {

	// flags first, then the environment
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.Storage, c.Storage)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.Notifier, c.Notifier)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.OTelEndpoint, c.OTelEndpoint)

	if c.TokenTTL.Duration != 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.LockoutDuration.Duration != 0 {
		config.LockoutDuration = c.LockoutDuration.Duration
	}
	if c.ResetTokenTTL.Duration != 0 {
		config.ResetTokenTTL = c.ResetTokenTTL.Duration
	}
	if c.NotifyTimeout.Duration != 0 {
		config.NotifyTimeout = c.NotifyTimeout.Duration
	}
	if c.HashCost != 0 {
		config.HashCost = c.HashCost
	}
	if c.LockoutThreshold != 0 {
		config.LockoutThreshold = c.LockoutThreshold
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
