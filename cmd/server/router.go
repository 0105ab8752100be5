package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/annotator-api/internal/api"
	apiMiddleware "github.com/phrazzld/annotator-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	return newRouter(routerDeps{
		auth: apiMiddleware.NewAuthMiddleware(app.jwtService),
		iam:  apiMiddleware.NewIAMMiddleware(app.resolver),

		organizations: api.NewOrganizationHandler(app.orgService, app.logger),
		memberships:   api.NewMembershipHandler(app.membershipService, app.logger),
		invitations:   api.NewInvitationHandler(app.invitationService, app.logger),
		datasets: api.NewDatasetHandler(app.datasetService, api.DatasetHandlerConfig{
			ImportDir:      app.config.Dataset.ImportDir,
			MaxUploadBytes: int64(app.config.Dataset.MaxUploadMB) << 20,
			PublicURL:      app.config.Server.PublicURL,
		}, app.logger),
		health: api.NewHealthHandler(app.db, app.logger),

		logger: app.logger,
	})
}

// routerDeps are the handlers and middleware served by the router.
type routerDeps struct {
	auth *apiMiddleware.AuthMiddleware
	iam  *apiMiddleware.IAMMiddleware

	organizations *api.OrganizationHandler
	memberships   *api.MembershipHandler
	invitations   *api.InvitationHandler
	datasets      *api.DatasetHandler
	health        *api.HealthHandler

	logger *slog.Logger
}

// newRouter registers the routes on a chi router. It takes handlers rather
// than the application so tests can serve it with fakes.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(d.logger))

	getAndHead(r, "/health", d.health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.auth.Authenticate)
			r.Use(d.iam.Resolve)

			r.Route("/organizations", func(r chi.Router) {
				getAndHead(r, "/", d.organizations.ListOrganizations)
				r.Post("/", d.organizations.CreateOrganization)
				r.Options("/", api.AllowMethods(api.OrganizationMethods...))
				getAndHead(r, "/{id}", d.organizations.GetOrganization)
				r.Patch("/{id}", d.organizations.UpdateOrganization)
				r.Delete("/{id}", d.organizations.DeleteOrganization)
				r.Options("/{id}", api.AllowMethods(api.OrganizationMethods...))
			})

			r.Route("/memberships", func(r chi.Router) {
				getAndHead(r, "/", d.memberships.ListMemberships)
				r.Options("/", api.AllowMethods(api.MembershipMethods...))
				getAndHead(r, "/{id}", d.memberships.GetMembership)
				r.Patch("/{id}", d.memberships.UpdateMembership)
				r.Delete("/{id}", d.memberships.DeleteMembership)
				r.Options("/{id}", api.AllowMethods(api.MembershipMethods...))
			})

			r.Route("/invitations", func(r chi.Router) {
				getAndHead(r, "/", d.invitations.ListInvitations)
				r.Post("/", d.invitations.CreateInvitation)
				r.Options("/", api.AllowMethods(api.InvitationMethods...))
				getAndHead(r, "/{key}", d.invitations.GetInvitation)
				r.Patch("/{key}", d.invitations.AcceptInvitation)
				r.Delete("/{key}", d.invitations.DeleteInvitation)
				r.Options("/{key}", api.AllowMethods(api.InvitationMethods...))
			})

			r.Post("/projects/{id}/dataset/export", d.datasets.RequestExport)
			r.Post("/projects/{id}/dataset/import", d.datasets.RequestImport)
			getAndHead(r, "/jobs/{id}", d.datasets.GetJob)
			getAndHead(r, "/jobs/{id}/file", d.datasets.DownloadExport)
			getAndHead(r, "/server/annotation/formats", d.datasets.ListFormats)
		})
	})

	return r
}

// getAndHead serves h for GET and HEAD on pattern.
func getAndHead(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Head(pattern, h)
}
