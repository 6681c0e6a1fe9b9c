package config

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/clinsec-lab/asklepios/pkg/utils/logging"
)

// Sentry holds CLI flags for the operational error channel
type Sentry struct {
	dsn string
	env string
}

// Flags returns CLI flags for Sentry configuration
func (s *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for operational error reporting",
			Sources:     cli.EnvVars("ASKLEPIOS_SENTRY_DSN"),
			Destination: &s.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment name",
			Value:       "production",
			Sources:     cli.EnvVars("ASKLEPIOS_SENTRY_ENV"),
			Destination: &s.env,
		},
	}
}

// Configure initializes Sentry and returns the report function handed to the
// use cases plus a flush closer. Without a DSN the report function only logs,
// so callers never need a nil check.
func (s *Sentry) Configure(version string) (func(error), func(), error) {
	if s.dsn == "" {
		report := func(err error) {
			logging.Default().Error("operational error", "error", err.Error())
		}
		return report, func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         s.dsn,
		Environment: s.env,
		Release:     version,
	}); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize sentry")
	}

	report := func(err error) {
		sentry.CaptureException(err)
	}
	closer := func() {
		sentry.Flush(2 * time.Second)
	}
	return report, closer, nil
}
