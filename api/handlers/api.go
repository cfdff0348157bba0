package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/dharma-case-api/api"
	"github.com/linesmerrill/dharma-case-api/assistant"
	"github.com/linesmerrill/dharma-case-api/cases"
	"github.com/linesmerrill/dharma-case-api/config"
	"github.com/linesmerrill/dharma-case-api/databases"
	"github.com/linesmerrill/dharma-case-api/identity"
)

// App stores the router and case store, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	DB        databases.CaseDatabase
	Manager   *cases.Manager
	Auth      *api.Auth
	Metrics   *api.Metrics
	Hub       *Hub
	Assistant *assistant.Service

	closers []func(context.Context) error
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// healthchex
	r := api.New()
	r.Use(a.Metrics.Middleware)

	c := Case{Manager: a.Manager, Assistant: a.Assistant}

	r.Handle("/metrics", a.Metrics.Handler()).Methods("GET")
	r.Handle("/ws/cases", api.TokenFromQuery(a.Auth.Middleware(http.HandlerFunc(a.Hub.HandleCasesWebSocket)))).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(a.requestTimeout()))

	apiCreate.Handle("/auth/{role}/token", http.HandlerFunc(a.Auth.CreateToken)).Methods("POST")

	apiCreate.Handle("/cases", a.Auth.Middleware(http.HandlerFunc(c.CasesHandler))).Methods("GET")
	apiCreate.Handle("/cases", a.Auth.Middleware(http.HandlerFunc(c.CreateCaseHandler))).Methods("POST")
	apiCreate.Handle("/cases/{case_id}", a.Auth.Middleware(http.HandlerFunc(c.CaseByIDHandler))).Methods("GET")
	apiCreate.Handle("/cases/{case_id}", a.Auth.Middleware(http.HandlerFunc(c.UpdateCaseHandler))).Methods("PATCH")
	apiCreate.Handle("/cases/{case_id}/close", a.Auth.Middleware(http.HandlerFunc(c.CloseCaseHandler))).Methods("POST")
	apiCreate.Handle("/cases/{case_id}/assignees", a.Auth.Middleware(http.HandlerFunc(c.AssignCaseHandler))).Methods("POST")
	apiCreate.Handle("/cases/{case_id}/documents", a.Auth.Middleware(http.HandlerFunc(c.AddDocumentHandler))).Methods("POST")
	apiCreate.Handle("/cases/{case_id}/assistant", a.Auth.Middleware(http.HandlerFunc(c.AssistantHandler))).Methods("POST")

	return r
}

// Initialize is invoked by main to open the case store and create a router.
// Background work started here stops when ctx is done.
func (a *App) Initialize(ctx context.Context) error {
	db, err := a.openStore(ctx)
	if err != nil {
		zap.S().Errorw("failed to open case store", "driver", a.Config.StoreDriver, "error", err)
		return err
	}
	zap.S().Infow("dharma-case-api has opened the case store", "driver", a.Config.StoreDriver)

	if a.Config.SeedDemoCases {
		seed, err := databases.LoadSeedCases()
		if err != nil {
			return err
		}
		added, err := databases.Seed(ctx, db, seed)
		if err != nil {
			return fmt.Errorf("seed demo cases: %w", err)
		}
		zap.S().Infow("seeded demo cases", "added", added)
	}

	dir, err := identity.DemoDirectory()
	if err != nil {
		return err
	}
	secret := a.Config.JWTSecret
	if secret == "" {
		zap.S().Warn("JWT_SECRET is not set, tokens will not survive a restart")
		secret = uuid.New().String()
	}

	if a.Config.GeminiAPIKey != "" {
		gen, err := assistant.NewGemini(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel)
		if err != nil {
			return err
		}
		a.Assistant = assistant.NewService(gen)
	} else {
		zap.S().Info("GEMINI_API_KEY is not set, the case assistant is disabled")
	}

	a.Wire(db, api.NewAuth(ctx, dir, identity.NewIssuer(secret)))
	return nil
}

// Wire builds the manager, listeners and router on top of db
func (a *App) Wire(db databases.CaseDatabase, auth *api.Auth) {
	a.Metrics = api.NewMetrics()
	a.Hub = NewHub()
	a.Auth = auth
	a.DB = a.Metrics.InstrumentCaseDatabase(db)
	a.Manager = cases.NewManager(a.DB,
		cases.WithListener(a.Metrics),
		cases.WithListener(a.Hub),
	)
	a.initializeRoutes()
}

// Close releases the case store
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) openStore(ctx context.Context) (databases.CaseDatabase, error) {
	switch a.Config.StoreDriver {
	case config.DriverMongo:
		client, err := databases.NewClient(&a.Config)
		if err != nil {
			return nil, fmt.Errorf("create mongo client: %w", err)
		}
		if err := client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)
		return databases.NewCaseDatabase(databases.NewDatabase(&a.Config, client)), nil
	case config.DriverSQLite:
		db, err := databases.NewSQLiteCaseDatabase(a.Config.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		return db, nil
	case config.DriverMemory, "":
		return databases.NewMemoryCaseDatabase(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.Config.StoreDriver)
}

func (a *App) requestTimeout() time.Duration {
	if a.Config.RequestTimeout > 0 {
		return a.Config.RequestTimeout
	}
	return 30 * time.Second
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}
