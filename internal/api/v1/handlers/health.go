package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/desktopathlete/athlete/internal/infrastructure/redis"
	"github.com/desktopathlete/athlete/pkg/httpext"
)

type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
}

// HandleHealth reports liveness. A configured but unreachable Redis degrades
// the status without failing the check.
func HandleHealth(redisService *redis.Service, w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}

	if redisService != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Redis = "ok"
		if err := redisService.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Redis = err.Error()
		}
	}

	httpext.JsonResponse(w, http.StatusOK, resp)
}
