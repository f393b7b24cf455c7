/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Actor:      X-Actor-ID header into the request context

ROUTE GROUPS:
  /api/students/*       Student directory and per-student views
  /api/accounts/*       Term accounts and adjustments
  /api/payments/*       Journal writes
  /api/catalog/*        Fee schedule lookups
  /api/scenarios/*      Demo scenarios
  /*                    Landing page

ACTOR ATTRIBUTION:
  Every mutating endpoint attributes the write to the X-Actor-ID header.
  ContextIdentity is the bursar-side resolver; wire it into bursar.New so
  service and router agree on the context key.

SECURITY NOTE:
  The actor header is trusted as-is. No authentication middleware currently;
  all endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/meridian/bursar-engine/bursar"
	"github.com/meridian/bursar-engine/ledger"
)

// actorHeader names the staff member performing the request.
const actorHeader = "X-Actor-ID"

type actorContextKey struct{}

// withActor copies the actor header into the request context.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(actorHeader); actor != "" {
			ctx := context.WithValue(r.Context(), actorContextKey{}, ledger.ActorID(actor))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// ContextIdentity resolves the acting staff member from the request context,
// falling back to the system actor for unattributed calls.
func ContextIdentity() bursar.IdentityFunc {
	return func(ctx context.Context) ledger.ActorID {
		if actor, ok := ctx.Value(actorContextKey{}).(ledger.ActorID); ok && actor != "" {
			return actor
		}
		return bursar.SystemActor
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", actorHeader},
		AllowCredentials: true,
	}))
	r.Use(withActor)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.RegisterStudent)
			r.Get("/{id}", h.GetStudent)
			r.Get("/{id}/accounts", h.ListStudentAccounts)
			r.Get("/{id}/payments", h.ListStudentPayments)
			r.Get("/{id}/audit", h.ListStudentAudit)
		})

		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/schedule", h.GetAccountSchedule)
			r.Put("/{id}/paid-type", h.SetPaidType)
			r.Post("/{id}/deactivate", h.DeactivateAccount)
			r.Post("/{id}/reactivate", h.ReactivateAccount)
			r.Post("/{id}/discount", h.ApplyDiscount)
			r.Post("/{id}/scholarship", h.ApplyScholarship)
			r.Post("/{id}/forward", h.ApplyForwarded)
			r.Post("/{id}/charges", h.AddCharge)
			r.Post("/{id}/reprice", h.RepriceAccount)
			r.Post("/{id}/rollover", h.RolloverAccount)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.RecordPayment)
			r.Post("/{id}/reverse", h.ReversePayment)
		})

		// Catalog routes
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/fees", h.ListCatalogFees)
			r.Get("/due-dates", h.ListCatalogDueDates)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Landing page
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Bursar Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Bursar Engine API</h1>
<p>Student tuition ledger. Accounts derive their balance from an append-only payment journal.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/students">/api/students</a> - List students</li>
<li><a href="/api/catalog/fees">/api/catalog/fees</a> - Fee schedule</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
