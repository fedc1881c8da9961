package config

import (
	"strings"
)

func GetPort() string {
	return GetEnvOrDefault("PORT", "8080")
}

// GetAllowedOrigins lists the browser origins allowed to open the chat websocket.
// Empty means same-origin only.
func GetAllowedOrigins() []string {
	raw := GetEnvOrDefault("ALLOWED_ORIGINS", "")
	if raw == "" {
		return nil
	}

	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func GetWorkoutDBPath() string {
	return GetEnvOrDefault("WORKOUT_DB_PATH", "data/workouts.db")
}
