package config

import (
	"github.com/namsral/flag"
)

type Config struct {
	ListenAddr       string
	DBConnUri        string
	DBMigrationsPath string
	SecretKey        string
	JWTIssuer        string
	LogLevel         string

	MaxReviewQuestions  int
	DailyLookbackDays   int
	RecentExclusionDays int
	SmartCountCacheTTL  int
	MinDailyErrorRate   float64
}

// Load loads the configs from the given arguments
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet("qbankserver", flag.ContinueOnError)

	fs.StringVar(&c.ListenAddr, "listen-addr", ":8190", "listen address for the HTTP server")
	fs.StringVar(&c.DBConnUri, "db-conn-uri", "", "postgres connection URI")
	fs.StringVar(&c.DBMigrationsPath, "db-migrations-path", "file://db/migrations", "the path where migrations are stored")
	fs.StringVar(&c.SecretKey, "secret-key", "", "secret key for JWT verification")
	fs.StringVar(&c.JWTIssuer, "jwt-issuer", "neuroqbank.app", "expected iss claim in JWTs")
	fs.StringVar(&c.LogLevel, "log-level", "info", "log level")

	fs.IntVar(&c.MaxReviewQuestions, "max-review-questions", 20, "cap on questions returned by a review selection")
	fs.IntVar(&c.DailyLookbackDays, "daily-lookback-days", 30, "attempt history window for the daily review")
	fs.IntVar(&c.RecentExclusionDays, "recent-exclusion-days", 3, "trailing window for recency exclusions")
	fs.IntVar(&c.SmartCountCacheTTL, "smart-count-cache-ttl-secs", 60, "TTL in seconds for cached smart review counts")
	fs.Float64Var(&c.MinDailyErrorRate, "min-daily-error-rate", 20, "minimum error rate (percent) for daily review candidacy")

	err := fs.Parse(args)
	return err
}
