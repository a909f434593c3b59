// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service behind it.
type Dependencies interface {
	AlertDependencies
	CountdownDependencies
	SafetyDependencies
	NotificationDependencies
	ConnectivityDependencies
	GuardianDependencies
	SettingsDependencies
}

// Server wires HTTP routes for the safety API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	alertsHandler        *AlertsHandler
	countdownHandler     *CountdownHandler
	safetyHandler        *SafetyHandler
	notificationsHandler *NotificationsHandler
	connectivityHandler  *ConnectivityHandler
	guardiansHandler     *GuardiansHandler
	settingsHandler      *SettingsHandler
	dashboardHandler     *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		alertsHandler:        NewAlertsHandler(deps),
		countdownHandler:     NewCountdownHandler(deps),
		safetyHandler:        NewSafetyHandler(deps),
		notificationsHandler: NewNotificationsHandler(deps),
		connectivityHandler:  NewConnectivityHandler(deps),
		guardiansHandler:     NewGuardiansHandler(deps),
		settingsHandler:      NewSettingsHandler(deps),
		dashboardHandler:     newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/alerts", MetricsMiddleware(s.alertsHandler.HandleAlerts, "alerts"))
	mux.HandleFunc("/alerts/", MetricsMiddleware(s.alertsHandler.HandleAlert, "alert"))
	mux.HandleFunc("/countdowns", MetricsMiddleware(s.countdownHandler.HandleCountdowns, "countdowns"))
	mux.HandleFunc("/countdowns/", MetricsMiddleware(s.countdownHandler.HandleCancelCountdown, "countdown_cancel"))
	mux.HandleFunc("/safety/score", MetricsMiddleware(s.safetyHandler.HandleScore, "safety_score"))
	mux.HandleFunc("/safety/location", MetricsMiddleware(s.safetyHandler.HandleLocation, "safety_location"))
	mux.HandleFunc("/safety/areas", MetricsMiddleware(s.safetyHandler.HandleAreas, "safety_areas"))
	mux.HandleFunc("/safety/areas/rank", MetricsMiddleware(s.safetyHandler.HandleAreaRank, "safety_area_rank"))
	mux.HandleFunc("/notifications", MetricsMiddleware(s.notificationsHandler.HandleCenter, "notifications"))
	mux.HandleFunc("/notifications/", MetricsMiddleware(s.notificationsHandler.HandleDismiss, "notification_dismiss"))
	mux.HandleFunc("/connectivity", MetricsMiddleware(s.connectivityHandler.HandleConnectivity, "connectivity"))
	mux.HandleFunc("/guardians/keys", MetricsMiddleware(s.guardiansHandler.HandleIssueKey, "guardian_keys"))
	mux.HandleFunc("/guardians/keys/validate", MetricsMiddleware(s.guardiansHandler.HandleValidateKey, "guardian_validate"))
	mux.HandleFunc("/settings/cancel-password", MetricsMiddleware(s.settingsHandler.HandleCancelPassword, "cancel_password"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
