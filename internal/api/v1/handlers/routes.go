package handlers

import (
	"net/http"

	v1mware "github.com/desktopathlete/athlete/internal/api/v1/middleware"
	"github.com/desktopathlete/athlete/internal/services"
	"github.com/gorilla/mux"
)

func RegisterV1Routes(router *mux.Router, services *services.Services) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		HandleHealth(services.GetRedisService(), w, r)
	}).Methods("GET")

	// v1 routes
	v1 := router.PathPrefix("/v1").Subrouter()

	// Thread pass-through routes, one per assistant operation
	threadsRouter := v1.PathPrefix("/threads").Subrouter()
	threadsRouter.Use(v1mware.RateLimit("threads"))
	threadsRouter.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		HandleCreateThread(services.GetBackend(), w, r)
	}).Methods("POST")
	threadsRouter.HandleFunc("/{threadID}/messages", func(w http.ResponseWriter, r *http.Request) {
		HandleCreateMessage(services.GetBackend(), w, r)
	}).Methods("POST")
	threadsRouter.HandleFunc("/{threadID}/messages", func(w http.ResponseWriter, r *http.Request) {
		HandleListMessages(services.GetBackend(), w, r)
	}).Methods("GET")
	threadsRouter.HandleFunc("/{threadID}/runs", func(w http.ResponseWriter, r *http.Request) {
		HandleCreateRun(services.GetBackend(), services.GetAssistantID(), w, r)
	}).Methods("POST")
	threadsRouter.HandleFunc("/{threadID}/runs/{runID}", func(w http.ResponseWriter, r *http.Request) {
		HandleRetrieveRun(services.GetBackend(), w, r)
	}).Methods("GET")

	// Session-scoped routes
	sessionRouter := v1.NewRoute().Subrouter()
	sessionRouter.Use(v1mware.Session(services.GetSessionService()))

	// one window for POST sends, socket upgrades and socket frames
	chatLimit := v1mware.NewLimit("chat")
	chatRouter := sessionRouter.PathPrefix("/chat").Subrouter()
	chatRouter.Handle("", chatLimit.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleChat(services, w, r)
	}))).Methods("POST")
	chatRouter.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		HandleResetChat(services, w, r)
	}).Methods("DELETE")
	chatRouter.Handle("/ws", chatLimit.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleChatWebSocket(services, chatLimit, w, r)
	}))).Methods("GET")

	workoutsRouter := sessionRouter.PathPrefix("/workouts").Subrouter()
	workoutsRouter.Use(v1mware.RateLimit("workouts"))
	workoutsRouter.HandleFunc("/completions", func(w http.ResponseWriter, r *http.Request) {
		HandleRecordCompletion(services.GetWorkoutService(), w, r)
	}).Methods("POST")
	workoutsRouter.HandleFunc("/completions", func(w http.ResponseWriter, r *http.Request) {
		HandleListCompletions(services.GetWorkoutService(), w, r)
	}).Methods("GET")
}
