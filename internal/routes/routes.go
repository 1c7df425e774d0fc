package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/sernion/mark-backend/internal/handlers"
	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/services"
)

// Deps carries everything the route table mounts.
type Deps struct {
	Auth        *handlers.AuthHandler
	Profile     *handlers.ProfileHandler
	Users       *handlers.UserHandler
	Projects    *handlers.ProjectHandler
	Datasets    *handlers.DatasetHandler
	Annotations *handlers.AnnotationHandler
	Templates   *handlers.TemplateHandler
	Invitations *handlers.InvitationHandler

	Tokens     services.TokenIssuer
	UserLoader middleware.UserLoader
	Redis      *redis.Client

	AllowedOrigins []string
}

// New builds the router. The whole API hangs off /api/v1; clients may send
// paths with or without a trailing slash.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Redis != nil {
		r.Use(middleware.RateLimit(d.Redis))
	}

	requireAuth := middleware.RequireAuth(d.Tokens, d.UserLoader)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/password-reset", d.Auth.PasswordResetRequest)
			r.Post("/password-reset/confirm", d.Auth.PasswordResetConfirm)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", d.Auth.Logout)
				r.Get("/verify", d.Auth.Verify)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", d.Profile.Get)
				r.Put("/profile", d.Profile.Update)
				r.Post("/change-password", d.Profile.ChangePassword)
				r.Post("/avatar", d.Profile.UploadAvatar)
				r.Get("/login-history", d.Users.LoginHistory)
			})

			r.With(middleware.RequireStaff).Get("/users", d.Users.List)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", d.Projects.List)
				r.Post("/", d.Projects.Create)

				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", d.Projects.Get)
					r.Put("/", d.Projects.Update)
					r.Delete("/", d.Projects.Delete)

					r.Post("/invitations", d.Invitations.Invite)

					r.Route("/datasets", func(r chi.Router) {
						r.Get("/", d.Datasets.List)
						r.Post("/", d.Datasets.Create)

						r.Route("/{datasetID}", func(r chi.Router) {
							r.Get("/", d.Datasets.Get)
							r.Put("/", d.Datasets.Update)
							r.Delete("/", d.Datasets.Delete)

							r.Route("/annotations", func(r chi.Router) {
								r.Get("/", d.Annotations.List)
								r.Post("/", d.Annotations.Create)
								r.Put("/{annotationID}", d.Annotations.Update)
								r.Delete("/{annotationID}", d.Annotations.Delete)
								r.Post("/{annotationID}/verify", d.Annotations.Verify)
							})
						})
					})

					r.Route("/templates", func(r chi.Router) {
						r.Get("/", d.Templates.List)
						r.Post("/", d.Templates.Create)
						r.Get("/{templateID}", d.Templates.Get)
						r.Put("/{templateID}", d.Templates.Update)
						r.Delete("/{templateID}", d.Templates.Delete)
					})
				})
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", d.Invitations.List)
				r.Post("/accept", d.Invitations.Accept)
				r.Post("/decline", d.Invitations.Decline)
			})
		})
	})

	return r
}
