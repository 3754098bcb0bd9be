package api

import (
	"context"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type HealthChecker interface {
	HealthCheck() echo.HandlerFunc
}

// Pinger is anything that can report whether its backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type healthChecker struct {
	health *health.Health
}

func NewHealthChecker(version string, checks ...health.Config) (HealthChecker, error) {
	h, err := health.New(health.WithComponent(health.Component{Name: "socialdev", Version: version}))
	if err != nil {
		return nil, errors.Wrap(err, "create health checker")
	}

	for _, check := range checks {
		if err := h.Register(check); err != nil {
			return nil, errors.Wrapf(err, "register health check %s", check.Name)
		}
	}

	return &healthChecker{
		health: h,
	}, nil
}

// PingCheck turns a Pinger into a health check.
func PingCheck(name string, timeout time.Duration, p Pinger) health.Config {
	return health.Config{
		Name:    name,
		Timeout: timeout,
		Check:   p.Ping,
	}
}

func (h *healthChecker) HealthCheck() echo.HandlerFunc {
	return echo.WrapHandler(h.health.Handler())
}
