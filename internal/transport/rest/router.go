package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"surveyengine/internal/metrics"
	"surveyengine/internal/service"
	"surveyengine/internal/transport/rest/handler"
	"surveyengine/internal/transport/rest/middleware"
	"surveyengine/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService     *service.AuthService
	SurveyService   handler.SurveyStore
	ResponseService handler.ResponseProcessor
	Statistics      handler.StatisticsReader
	Responses       handler.ResponseScanner
	WSHub           *ws.Hub
	Metrics         *metrics.Metrics
	CORSOrigins     []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService, c.Statistics, c.Responses)
	sessionHandler := handler.NewSessionHandler(c.ResponseService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/surveys/{surveyId}/sessions", sessionHandler.Start).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SurveyService, c.CORSOrigins)
		v1.HandleFunc("/ws/surveys/{surveyId}/live", wsHandler.DashboardWS).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}

	// Host routes (require host auth)
	hostRoutes := v1.PathPrefix("/surveys").Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("", surveyHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("", surveyHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/{surveyId}", surveyHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/{surveyId}", surveyHandler.Update).Methods("PUT", "OPTIONS")
	hostRoutes.HandleFunc("/{surveyId}", surveyHandler.Delete).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/{surveyId}/statistics", surveyHandler.Statistics).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/{surveyId}/responses", surveyHandler.Responses).Methods("GET", "OPTIONS")

	// Respondent routes (require session token)
	sessionRoutes := v1.PathPrefix("/session").Subrouter()
	sessionRoutes.Use(authMW.RequireRespondent)

	sessionRoutes.HandleFunc("", sessionHandler.Show).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/answers", sessionHandler.SubmitAnswer).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/back", sessionHandler.StepBack).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/restart", sessionHandler.Restart).Methods("POST", "OPTIONS")

	return r
}

// corsMiddleware echoes an allowed Origin back. An empty list or "*" allows any origin.
func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSpace(o)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case len(allowed) == 0 || allowed["*"]:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
