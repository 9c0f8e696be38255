package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/policy"
	"github.com/erazemk/najdeno/internal/workflow"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, svc *workflow.Service, tokens *auth.Tokens) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Tokens: tokens}
	usersHandler := &UsersHandler{DB: db}
	campusesHandler := &CampusesHandler{DB: db}
	foundHandler := &FoundItemsHandler{Svc: svc}
	lostHandler := &LostItemsHandler{Svc: svc}
	matchesHandler := &MatchesHandler{Svc: svc}
	claimsHandler := &ClaimsHandler{Svc: svc}
	feedHandler := &NotificationsHandler{DB: db}

	authMW := AuthMiddleware(tokens, db)
	// can wraps a handler in authentication and a policy check for op.
	can := func(op policy.Operation, h http.HandlerFunc) http.Handler {
		return authMW(RequirePermission(op)(h))
	}

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Campuses: read (all roles), write (admin).
	mux.Handle("GET /api/campuses", can(policy.ItemRead, campusesHandler.List))
	mux.Handle("POST /api/campuses", can(policy.CampusManage, campusesHandler.Create))
	mux.Handle("PUT /api/campuses/{id}", can(policy.CampusManage, campusesHandler.Update))
	mux.Handle("DELETE /api/campuses/{id}", can(policy.CampusManage, campusesHandler.Delete))

	// Users (admin only).
	mux.Handle("GET /api/users", can(policy.UserManage, usersHandler.List))
	mux.Handle("POST /api/users", can(policy.UserManage, usersHandler.Create))
	mux.Handle("GET /api/users/{id}", can(policy.UserManage, usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", can(policy.UserManage, usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", can(policy.UserManage, usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", can(policy.UserManage, usersHandler.Delete))

	// Found items.
	mux.Handle("GET /api/found-items", can(policy.ItemRead, foundHandler.List))
	mux.Handle("POST /api/found-items", can(policy.ItemReportFound, foundHandler.Create))
	mux.Handle("GET /api/found-items/{id}", can(policy.ItemRead, foundHandler.Get))
	mux.Handle("PUT /api/found-items/{id}/status", can(policy.ItemUpdateStatus, foundHandler.UpdateStatus))
	mux.Handle("PUT /api/found-items/{id}/image", can(policy.ItemReportFound, foundHandler.UploadImage))
	mux.Handle("GET /api/found-items/{id}/image", can(policy.ItemRead, foundHandler.GetImage))
	mux.Handle("GET /api/found-items/{id}/candidates", can(policy.MatchPropose, foundHandler.Candidates))
	mux.Handle("POST /api/found-items/{id}/return", can(policy.ItemReturn, foundHandler.Return))
	mux.Handle("GET /api/found-items/{id}/claims", can(policy.ClaimReadAll, foundHandler.Claims))

	// Lost item reports; owners may close their own.
	mux.Handle("GET /api/lost-items", can(policy.ItemRead, lostHandler.List))
	mux.Handle("POST /api/lost-items", can(policy.ItemReportLost, lostHandler.Create))
	mux.Handle("GET /api/lost-items/{id}", can(policy.ItemRead, lostHandler.Get))
	mux.Handle("PUT /api/lost-items/{id}/status", can(policy.ItemReportLost, lostHandler.UpdateStatus))

	// Matches (staff).
	mux.Handle("POST /api/matches", can(policy.MatchPropose, matchesHandler.Create))
	mux.Handle("GET /api/matches", can(policy.MatchPropose, matchesHandler.List))
	mux.Handle("POST /api/matches/{id}/approve", can(policy.MatchApprove, matchesHandler.Approve))

	// Claims.
	mux.Handle("GET /api/claims", can(policy.ClaimReadOwn, claimsHandler.List))
	mux.Handle("POST /api/claims", can(policy.ClaimSubmit, claimsHandler.Create))
	mux.Handle("GET /api/claims/{id}", can(policy.ClaimReadOwn, claimsHandler.Get))
	mux.Handle("POST /api/claims/{id}/verify", can(policy.ClaimVerify, claimsHandler.Verify))
	mux.Handle("PUT /api/claims/{id}/evidence-image", can(policy.ClaimSubmit, claimsHandler.UploadEvidence))
	mux.Handle("GET /api/claims/{id}/evidence-images/{image}", can(policy.ClaimReadOwn, claimsHandler.GetEvidence))
	mux.Handle("GET /api/claims/{id}/log", can(policy.ClaimReadOwn, claimsHandler.Log))

	// Notification feed.
	mux.Handle("GET /api/notifications", can(policy.NotificationRead, feedHandler.List))
	mux.Handle("GET /api/notifications/ws", can(policy.NotificationRead, feedHandler.Stream))

	return mux
}
