package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	cferrs "github.com/jdholdren/cardfeed/internal/errors"
	"github.com/jdholdren/cardfeed/internal/review"
	"github.com/jdholdren/cardfeed/internal/serverutil"
	"github.com/jdholdren/cardfeed/internal/worker"
)

type UnreadResp struct {
	Items      []cardfeed.RSSItem `json:"items"`
	Pagination paginationMeta     `json:"pagination"`
}

func (s Server) getUnread(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx           = r.Context()
		vars          = mux.Vars(r)
		limit, offset = parsePaginationParams(r, 20, 100)
	)

	items, err := s.reviews.UnreadItems(ctx, vars["userID"], vars["feedID"])
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, UnreadResp{
		Items:      page(items, limit, offset),
		Pagination: calculatePaginationMeta(limit, offset, len(items)),
	})
}

type UnreadCountResp struct {
	Count int `json:"count"`
}

func (s Server) getUnreadCount(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx  = r.Context()
		vars = mux.Vars(r)
	)

	count, err := s.reviews.UnreadCount(ctx, vars["userID"], vars["feedID"])
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, UnreadCountResp{Count: count})
}

type UnreadCountsResp struct {
	Feeds []review.FeedUnread `json:"feeds"`
}

func (s Server) getUnreadCounts(w http.ResponseWriter, r *http.Request) error {
	counts, err := s.reviews.UnreadCounts(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, UnreadCountsResp{Feeds: counts})
}

type PostReadsReq struct {
	ItemIDs []string `json:"item_ids"`
}

func (req PostReadsReq) Validate() error {
	if len(req.ItemIDs) == 0 {
		return cferrs.E("item_ids is required", http.StatusBadRequest, cferrs.Detail{Field: "item_ids", Error: "required"})
	}
	return nil
}

func (s Server) postReads(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[PostReadsReq](r.Body)
	if err != nil {
		return err
	}

	if err := s.reviews.MarkRead(r.Context(), mux.Vars(r)["userID"], req.ItemIDs...); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type SubscriptionsResp struct {
	Subscriptions []cardfeed.Subscription `json:"subscriptions"`
}

func (s Server) getSubscriptions(w http.ResponseWriter, r *http.Request) error {
	subs, err := s.repo.UserSubscriptions(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		return fmt.Errorf("error listing subscriptions: %w", err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, SubscriptionsResp{Subscriptions: subs})
}

type PostSubscriptionReq struct {
	FeedURL string         `json:"feed_url"`
	Config  map[string]any `json:"config"`
}

func (req PostSubscriptionReq) Validate() error {
	if req.FeedURL == "" {
		return cferrs.E("feed_url is required", http.StatusBadRequest, cferrs.Detail{Field: "feed_url", Error: "required"})
	}
	return nil
}

func (s Server) postSubscriptions(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		userID = mux.Vars(r)["userID"]
	)
	req, err := serverutil.DecodeValid[PostSubscriptionReq](r.Body)
	if err != nil {
		return err
	}
	cfg, err := cardfeed.ParseSubscriptionConfig(req.Config)
	if err != nil {
		return err
	}

	var sub cardfeed.Subscription
	if s.tempCli != nil {
		sub, err = worker.TriggerSubscribeWorkflow(ctx, s.tempCli, worker.SubscribeArgs{
			UserID:  userID,
			FeedURL: req.FeedURL,
			Config:  cfg,
		})
	} else {
		sub, err = s.syncer.Subscribe(ctx, userID, req.FeedURL, cfg)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, sub)
}

// Loads a subscription, making sure it belongs to the user in the path.
func (s Server) userSubscription(r *http.Request) (cardfeed.Subscription, error) {
	vars := mux.Vars(r)
	sub, err := s.repo.Subscription(r.Context(), vars["subscriptionID"])
	if err != nil {
		return cardfeed.Subscription{}, fmt.Errorf("error fetching subscription: %w", err)
	}
	if sub.Deleted {
		return cardfeed.Subscription{}, fmt.Errorf("subscription %s was deleted: %w", sub.ID, cardfeed.ErrNotFound)
	}
	if sub.UserID != vars["userID"] {
		return cardfeed.Subscription{}, fmt.Errorf("subscription %s belongs to another user: %w", sub.ID, cardfeed.ErrAccessDenied)
	}

	return sub, nil
}

type PatchSubscriptionReq struct {
	Config map[string]any `json:"config"`
}

func (req PatchSubscriptionReq) Validate() error {
	if req.Config == nil {
		return cferrs.E("config is required", http.StatusBadRequest, cferrs.Detail{Field: "config", Error: "required"})
	}
	return nil
}

// Replaces the subscription's config. Keys left out go back to their defaults.
func (s Server) patchSubscription(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	req, err := serverutil.DecodeValid[PatchSubscriptionReq](r.Body)
	if err != nil {
		return err
	}
	cfg, err := cardfeed.ParseSubscriptionConfig(req.Config)
	if err != nil {
		return err
	}

	sub, err := s.userSubscription(r)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateSubscriptionConfig(ctx, sub.ID, cfg); err != nil {
		return fmt.Errorf("error updating subscription: %w", err)
	}
	sub.Config = cfg

	return serverutil.WriteJSON(w, http.StatusOK, sub)
}

func (s Server) deleteSubscription(w http.ResponseWriter, r *http.Request) error {
	sub, err := s.userSubscription(r)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDeleteSubscription(r.Context(), sub.ID); err != nil {
		return fmt.Errorf("error deleting subscription: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s Server) getFeedPreview(w http.ResponseWriter, r *http.Request) error {
	polled, err := s.syncer.PollFeed(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, polled)
}

type DiscoverResp struct {
	Feeds []string `json:"feeds"`
}

func (s Server) getFeedDiscover(w http.ResponseWriter, r *http.Request) error {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		return cferrs.E("url is required", http.StatusBadRequest, cferrs.Detail{Field: "url", Error: "required"})
	}

	feeds, err := s.syncer.Discover(r.Context(), pageURL)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, DiscoverResp{Feeds: feeds})
}

type RefreshResp struct {
	Inserted int           `json:"inserted"`
	Feed     cardfeed.Feed `json:"feed"`
}

func (s Server) postFeedRefresh(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	feed, err := s.repo.Feed(ctx, mux.Vars(r)["feedID"])
	if err != nil {
		return fmt.Errorf("error fetching feed: %w", err)
	}

	inserted, err := s.syncer.RefreshFeed(ctx, feed)
	if err != nil {
		return err
	}

	// Pick up the new title and sync time
	feed, err = s.repo.Feed(ctx, feed.ID)
	if err != nil {
		return fmt.Errorf("error fetching feed: %w", err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, RefreshResp{Inserted: inserted, Feed: feed})
}
