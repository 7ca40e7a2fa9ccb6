package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string         HTTP bind address (e.g., ":8080")
//	-g string         gRPC bind address (e.g., ":50051")
//	-d string         PostgreSQL DSN
//	-s string         JWT HMAC secret key
//	-t duration       access token lifetime (e.g., "1h")
//	-storage string   postgres or memory
//	-hash-cost int    bcrypt cost
//	-l string         log level
//	-cors string      comma-separated allowed origins
//	-redis string     Redis address for the logout denylist
//	-notifier string  log or s3
//	-b string         S3 bucket name
//	-e string         S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-otel string      OTLP/HTTP trace endpoint
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with -c/-config.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-s", "-t", "-storage", "-hash-cost", "-l",
		"-cors", "-redis", "-notifier", "-b", "-e", "-otel",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenTTL, "t", config.TokenTTL, "access token validity duration")
	fs.StringVar(&config.Storage, "storage", config.Storage, "account storage: postgres or memory")
	fs.IntVar(&config.HashCost, "hash-cost", config.HashCost, "bcrypt cost")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	cors := fs.String("cors", strings.Join(config.CORSOrigins, ","), "allowed CORS origins, comma separated")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address for revoked tokens")
	fs.StringVar(&config.Notifier, "notifier", config.Notifier, "notifier: log or s3")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 outbox bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.OTelEndpoint, "otel", config.OTelEndpoint, "OTLP/HTTP trace endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CORSOrigins = splitList(*cors)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
