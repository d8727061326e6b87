package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	roster "github.com/chatframe/roster"
	"github.com/chatframe/roster/internal"
)

var (
	flagBindAddr = flag.String("port", ":8108", "Bind address")
	flagPostgres = flag.String("db", "user=postgres dbname=roster sslmode=disable", "Postgres DB connection string (see lib/pq docs)")
)

// Env vars, all optional.
const (
	EnvSentryDSN = "ROSTER_SENTRY_DSN"
	EnvOTLPURL   = "ROSTER_OTLP_URL"
	EnvOTLPUser  = "ROSTER_OTLP_USERNAME"
	EnvOTLPPass  = "ROSTER_OTLP_PASSWORD"
	EnvProm      = "ROSTER_PROM"
	EnvReplay    = "ROSTER_REPLAY_PENDING"
)

func main() {
	flag.Parse()

	if dsn := os.Getenv(EnvSentryDSN); dsn != "" {
		fmt.Printf("Configuring Sentry reporting: %s\n", dsn)
		err := sentry.Init(sentry.ClientOptions{
			Dsn:     dsn,
			Release: roster.Version,
		})
		if err != nil {
			panic(err)
		}
		defer sentry.Flush(time.Second * 5)
	}

	if otlpURL := os.Getenv(EnvOTLPURL); otlpURL != "" {
		fmt.Printf("Configuring OTLP collector: %s\n", otlpURL)
		err := internal.ConfigureOTLP(otlpURL, os.Getenv(EnvOTLPUser), os.Getenv(EnvOTLPPass), roster.Version)
		if err != nil {
			panic(err)
		}
	}

	opts := roster.Opts{
		AddPrometheusMetrics: os.Getenv(EnvProm) == "1",
		ReplayPendingMembers: os.Getenv(EnvReplay) == "1",
	}
	app := roster.Setup(*flagPostgres, opts)
	roster.RunRosterServer(app, *flagBindAddr, opts)
}
