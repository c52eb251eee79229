package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vladimiradmaev/coaching-engine/internal/handlers"
	"github.com/vladimiradmaev/coaching-engine/internal/middleware"
)

// RequestTimeout bounds a single request, including the model calls it waits on.
const RequestTimeout = 60 * time.Second

// NewRouter mounts the coaching API.
func NewRouter(h *handlers.Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(chimw.Timeout(RequestTimeout))

	r.Get("/health", h.Health)

	r.Route("/recommendation", func(r chi.Router) {
		r.Post("/", h.CreateRecommendation)
		r.Get("/{recommendation_id}", h.GetRecommendation)
	})

	r.Route("/behavior", func(r chi.Router) {
		r.Post("/", h.CreateBehavioralAnalysis)
		r.Get("/{recommendation_id}", h.GetBehavioralRecommendation)
	})

	r.Route("/timing", func(r chi.Router) {
		r.Put("/", h.UpdatePolicyReward)
		r.Get("/{policy_type}/", h.GetTimingForPolicy)
	})

	r.Route("/moderation", func(r chi.Router) {
		r.Post("/textContentDetection/", h.DetectTextContent)
	})

	return r
}
