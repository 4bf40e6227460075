package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jdholdren/cardfeed/internal/cardfeed"
	cferrs "github.com/jdholdren/cardfeed/internal/errors"
	"github.com/jdholdren/cardfeed/internal/review"
	"github.com/jdholdren/cardfeed/internal/serverutil"
)

// Reads the optional "at" query param, falling back to the current time.
func (s Server) instant(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return s.now(), nil
	}

	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, cferrs.E("at must be an RFC 3339 timestamp", http.StatusBadRequest, cferrs.Detail{Field: "at", Error: err.Error()})
	}
	return at, nil
}

type DueResp struct {
	Cards []cardfeed.Card `json:"cards"`
	Count int             `json:"count"`
}

func (s Server) getDue(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		userID = mux.Vars(r)["userID"]
	)
	at, err := s.instant(r)
	if err != nil {
		return err
	}

	cards, err := s.reviews.DueCards(ctx, userID, at)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, DueResp{
		Cards: cards,
		Count: len(cards),
	})
}

type QueueResp struct {
	Items []review.QueueItem `json:"items"`
}

func (s Server) getQueue(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		userID = mux.Vars(r)["userID"]
	)
	at, err := s.instant(r)
	if err != nil {
		return err
	}

	queue, err := s.reviews.BuildQueue(ctx, userID, at)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, QueueResp{Items: queue})
}

type PostImpressionReq struct {
	CardID      string              `json:"card_id"`
	Resolution  cardfeed.Resolution `json:"resolution"`
	TimeSpentMS int64               `json:"time_spent_ms"`
	Date        *time.Time          `json:"date"` // Defaults to now
}

func (req PostImpressionReq) Validate() error {
	var details []cferrs.Detail
	if req.CardID == "" {
		details = append(details, cferrs.Detail{Field: "card_id", Error: "required"})
	}
	if !req.Resolution.IsValid() {
		details = append(details, cferrs.Detail{Field: "resolution", Error: "must be one of easy, hard or repeat"})
	}
	if req.TimeSpentMS < 0 {
		details = append(details, cferrs.Detail{Field: "time_spent_ms", Error: "cannot be negative"})
	}
	if len(details) > 0 {
		return cferrs.E("invalid impression", http.StatusBadRequest, details)
	}

	return nil
}

func (s Server) postImpressions(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx    = r.Context()
		userID = mux.Vars(r)["userID"]
	)
	req, err := serverutil.DecodeValid[PostImpressionReq](r.Body)
	if err != nil {
		return err
	}

	at := s.now()
	if req.Date != nil {
		at = *req.Date
	}

	imp, err := s.reviews.RecordImpression(ctx, userID, req.CardID, req.Resolution, time.Duration(req.TimeSpentMS)*time.Millisecond, at)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, imp)
}
