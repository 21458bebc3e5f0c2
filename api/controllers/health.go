package controllers

import (
	"context"
	"net/http"

	"github.com/shutupnraveee/backend/api/responses"
	"github.com/shutupnraveee/backend/pkg/config"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
)

// Pinger is anything that can report liveness of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sunr-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the hard dependencies. Object storage is optional and
// reported without failing readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, gcsP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sunr-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		check := func(name string, p Pinger, required bool) {
			if p == nil {
				checks[name] = "not_configured"
				return
			}
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "down"
				if required {
					healthy = false
				}
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "readiness check failed", err)
				}
				return
			}
			checks[name] = "ok"
		}

		check("database", dbP, true)
		check("redis", redisP, true)
		check("gcs", gcsP, false)

		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
