// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/ManuGH/waitlistd/internal/transport/http/problem"
)

// RouterConfig bundles the global, IP-keyed ceiling applied in front of the
// per-action ratelimit.Limiter — a coarse circuit breaker so one runaway
// client can't exhaust a tenant's slot-matching capacity even before the
// per-action limiter's bookkeeping kicks in.
type RouterConfig struct {
	GlobalRequestLimit int
	GlobalWindow       time.Duration
}

// DefaultRouterConfig mirrors ratelimit.DefaultConfig's order of magnitude.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{GlobalRequestLimit: 300, GlobalWindow: time.Minute}
}

// NewRouter builds the waitlistd HTTP API: a chi.Mux with the canonical
// middleware stack (recoverer, request id, security headers, logging,
// global rate limit) applied, mounting spec §6's wire surface under
// /v1/tenants/{tenantID}.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer)
	r.Use(OTelHTTP("waitlistd"))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(RequestLogger)
	if cfg.GlobalRequestLimit > 0 {
		r.Use(httprate.Limit(
			cfg.GlobalRequestLimit,
			cfg.GlobalWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				problem.Write(w, r, http.StatusTooManyRequests, "waitlist/rate_limited", "Too Many Requests",
					"RATE_LIMITED", "global rate limit exceeded", nil)
			}),
		))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, "waitlist/not_found", "Not Found", "NOT_FOUND",
			"the requested resource was not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "waitlist/method_not_allowed", "Method Not Allowed",
			"METHOD_NOT_ALLOWED", "the requested method is not allowed for this resource", nil)
	})

	r.Get("/healthz", healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/process_expired_holds", s.handleProcessExpiredHolds)

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Post("/confirm", s.handleConfirm)
			r.Post("/decline", s.handleDecline)

			r.Route("/slots/{slotID}", func(r chi.Router) {
				r.Post("/open", s.handleOpenSlot)
				r.Post("/hold", s.handleHoldSlot)
				r.Post("/cancel", s.handleCancelSlot)
			})
		})
	})

	return r
}
