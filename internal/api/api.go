// Package api serves the review queue, card impressions and feed reading over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.temporal.io/sdk/client"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	"github.com/jdholdren/cardfeed/internal/feedsync"
	"github.com/jdholdren/cardfeed/internal/review"
	"github.com/jdholdren/cardfeed/internal/serverutil"
)

type (
	// Server is the HTTP surface of the reviewer.
	Server struct {
		*http.Server

		repo    cardfeed.Repository
		reviews *review.Service
		syncer  *feedsync.Syncer
		tempCli client.Client // Optional; subscriptions go straight through the syncer without it

		now func() time.Time
	}

	ServerConfig struct {
		Port       int
		CorsHeader string
	}
)

func NewServer(config ServerConfig, repo cardfeed.Repository, reviews *review.Service, syncer *feedsync.Syncer, temporalCli client.Client) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}

	srvr := Server{
		repo:    repo,
		reviews: reviews,
		syncer:  syncer,
		tempCli: temporalCli,
		now:     time.Now,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second, // Queues can refresh feeds before answering
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything

	// Reviewing
	r.HandleFuncE("/api/users/{userID}/due", srvr.getDue).Methods(http.MethodGet)
	r.HandleFuncE("/api/users/{userID}/queue", srvr.getQueue).Methods(http.MethodGet)
	r.HandleFuncE("/api/users/{userID}/impressions", srvr.postImpressions).Methods(http.MethodPost)

	// Reading
	r.HandleFuncE("/api/users/{userID}/unread", srvr.getUnreadCounts).Methods(http.MethodGet)
	r.HandleFuncE("/api/users/{userID}/feeds/{feedID}/unread", srvr.getUnread).Methods(http.MethodGet)
	r.HandleFuncE("/api/users/{userID}/feeds/{feedID}/unread/count", srvr.getUnreadCount).Methods(http.MethodGet)
	r.HandleFuncE("/api/users/{userID}/reads", srvr.postReads).Methods(http.MethodPost)

	// Subscription management
	r.HandleFuncE("/api/users/{userID}/subscriptions", srvr.getSubscriptions).Methods(http.MethodGet)
	r.HandleFuncE("/api/users/{userID}/subscriptions", srvr.postSubscriptions).Methods(http.MethodPost)
	r.HandleFuncE("/api/users/{userID}/subscriptions/{subscriptionID}", srvr.patchSubscription).Methods(http.MethodPatch)
	r.HandleFuncE("/api/users/{userID}/subscriptions/{subscriptionID}", srvr.deleteSubscription).Methods(http.MethodDelete)

	// Feeds
	r.HandleFuncE("/api/feeds/preview", srvr.getFeedPreview).Methods(http.MethodGet)
	r.HandleFuncE("/api/feeds/discover", srvr.getFeedDiscover).Methods(http.MethodGet)
	r.HandleFuncE("/api/feeds/{feedID}/refresh", srvr.postFeedRefresh).Methods(http.MethodPost)

	slog.Debug("configured api server", "port", config.Port)

	return &srvr
}
