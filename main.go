package main

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"

	"heimdall/config"
	"heimdall/handler"
	"heimdall/hub"
	"heimdall/ledger"
	"heimdall/platform"
	"heimdall/sensor"
	"heimdall/store"
)

func main() {
	cfg := config.Load()

	// Database
	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		log.Fatalf("migration: %v", err)
	}

	// Workflow platform
	client, err := platform.NewClient(cfg.PlatformURL, cfg.PlatformAPIKey)
	if err != nil {
		log.Fatalf("platform: %v", err)
	}
	if err := client.Healthy(context.Background()); err != nil {
		log.Printf("WARNING: platform unavailable (%v)", err)
	} else {
		log.Println("platform connected at " + cfg.PlatformURL)
	}

	// Formatter profiles
	profiles, err := config.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if len(profiles) > 0 {
		log.Printf("loaded %d formatter profiles", len(profiles))
	}

	// WebSocket hub
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}
	ws := hub.New(allowedOrigins)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "heimdall"
	}

	// Cron enforcement sensor
	sens := &sensor.Sensor{
		Platform:   client,
		Ledger:     ledger.New(client, cfg.DatastoreKey),
		History:    db,
		Events:     ws,
		Server:     hostname,
		TriggerRef: cfg.TriggerRef,
	}

	// Poll cycles run on their own cron schedule; SkipIfStillRunning keeps
	// cycles from overlapping when the platform is slow.
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := sched.AddFunc(cfg.PollSchedule, func() {
		if err := sens.Poll(context.Background()); err != nil {
			log.Printf("sensor: cycle aborted: %v", err)
		}
	}); err != nil {
		log.Fatalf("poll schedule %q: %v", cfg.PollSchedule, err)
	}
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	sched.AddFunc("@hourly", func() {
		n, err := db.PruneAlerts(context.Background(), retention)
		if err != nil {
			log.Printf("store: prune: %v", err)
		} else if n > 0 {
			log.Printf("store: pruned %d old alerts", n)
		}
	})
	sched.Start()

	// Handler
	h := handler.New(db, client, sens, cfg, profiles)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	if cfg.APIToken != "" {
		r.Use(bearerAuth(cfg.APIToken))
		log.Println("API token auth enabled")
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"version":"` + Version + `"}`))
		})

		r.Get("/alerts", h.ListAlerts)
		r.Post("/poll", h.RunPoll)

		r.Route("/executions/{id}", func(r chi.Router) {
			r.Get("/error", h.ExecutionError)
			r.Get("/tree", h.ExecutionTree)
			r.Get("/status", h.ExecutionStatus)
		})
	})

	r.Get("/ws", ws.HandleConnect)

	srv := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("heimdall %s listening on %s:%s", Version, cfg.BindAddr, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	<-sched.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ws" || r.URL.Path == "/api/health" || r.URL.Path == "/api/version" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(auth[7:]), []byte(token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
