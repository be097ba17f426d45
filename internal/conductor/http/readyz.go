package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
	"github.com/aussiebroadwan/conductor/pkg/httpx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness check covering the database and the external event sink.
//	@Description	Also reports how many peer clients are live.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	conductorsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	conductorsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	peers *service.PeerService,
	eventsCheck func(context.Context) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &conductorsdk.HealthChecks{Database: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if eventsCheck != nil {
			checks.Events = "ok"
			if err := eventsCheck(r.Context()); err != nil {
				checks.Events = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
		}

		if peers != nil && peers.Registry != nil {
			checks.Clients = peers.Registry.Len()
		}

		httpx.WriteJSON(w, statusCode, conductorsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
