package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/uniplay/prediction"
	"github.com/Dosada05/uniplay/services"
)

type LiveMatchHandler struct {
	liveService services.LiveMatchService
	predictor   prediction.Predictor
}

func NewLiveMatchHandler(ls services.LiveMatchService, predictor prediction.Predictor) *LiveMatchHandler {
	if predictor == nil {
		predictor = prediction.Heuristic{}
	}
	return &LiveMatchHandler{liveService: ls, predictor: predictor}
}

// Initialize godoc
// @Summary Initialize live scoring for a fixture
// @Tags live-matches
// @Accept json
// @Produce json
// @Param input body services.InitializeLiveMatchInput true "Toss details"
// @Success 201 {object} map[string]interface{} "Live match created"
// @Failure 404 {object} map[string]string "Fixture not found"
// @Failure 409 {object} map[string]string "Already initialized"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Security BearerAuth
// @Router /live-matches [post]
func (h *LiveMatchHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var input services.InitializeLiveMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.liveService.Initialize(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"live_match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Get the live match state, initializing it with the default toss when due
// @Tags live-matches
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Fixture is not live"
// @Router /live-matches/{matchID} [get]
func (h *LiveMatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.liveService.GetOrAutoInitialize(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"live_match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Summary godoc
// @Summary Get the flattened score summary of a live match
// @Tags live-matches
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /live-matches/{matchID}/summary [get]
func (h *LiveMatchHandler) Summary(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.liveService.GetMatchSummary(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Commentary godoc
// @Summary Recent ball-by-ball commentary of the current innings, newest first
// @Tags live-matches
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Param limit query int false "Number of entries (default 20)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /live-matches/{matchID}/commentary [get]
func (h *LiveMatchHandler) Commentary(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	}

	entries, err := h.liveService.GetCommentary(r.Context(), matchID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"commentary": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordDelivery godoc
// @Summary Record one delivery of the current innings
// @Tags live-matches
// @Accept json
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Param input body services.DeliveryInput true "Delivery"
// @Success 200 {object} services.DeliveryResult
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Innings or match already completed"
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /live-matches/{matchID}/deliveries [post]
func (h *LiveMatchHandler) RecordDelivery(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.DeliveryInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.liveService.RecordDelivery(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CompleteInnings godoc
// @Summary Close the current innings, starting the chase or finishing the match
// @Tags live-matches
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /live-matches/{matchID}/complete-innings [post]
func (h *LiveMatchHandler) CompleteInnings(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.liveService.CompleteInnings(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"live_match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetPlayers godoc
// @Summary Replace the current batsmen and bowler
// @Tags live-matches
// @Accept json
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Param input body services.SetPlayersInput true "Players"
// @Success 200 {object} services.CurrentPlayers
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /live-matches/{matchID}/players [put]
func (h *LiveMatchHandler) SetPlayers(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SetPlayersInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.liveService.SetCurrentPlayers(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, players, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Predict godoc
// @Summary Win probability and projected score for a live match
// @Tags live-matches
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Success 200 {object} prediction.Prediction
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /live-matches/{matchID}/prediction [post]
func (h *LiveMatchHandler) Predict(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.liveService.GetLiveMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	pred, err := h.predictor.Predict(r.Context(), match)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pred, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
