package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Dosada05/uniplay/services"
)

const maxScorecardBytes = 10 << 20

type AutoPlayHandler struct {
	autoPlayService services.AutoPlayService
}

func NewAutoPlayHandler(as services.AutoPlayService) *AutoPlayHandler {
	return &AutoPlayHandler{autoPlayService: as}
}

type speedInput struct {
	Speed float64 `json:"speed"`
}

// Upload godoc
// @Summary Upload a Cricsheet JSON scorecard to replay
// @Tags autoplay
// @Accept multipart/form-data
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Param file formData file true "Cricsheet JSON file"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid file"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Live match not initialized"
// @Security BearerAuth
// @Router /autoplay/{matchID}/upload [post]
func (h *AutoPlayHandler) Upload(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxScorecardBytes+1<<20)
	if err := r.ParseMultipartForm(maxScorecardBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			badRequestResponse(w, r, errors.New("file field is required"))
			return
		}
		badRequestResponse(w, r, fmt.Errorf("invalid file upload: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxScorecardBytes+1))
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if len(data) > maxScorecardBytes {
		badRequestResponse(w, r, fmt.Errorf("file must not be larger than %d bytes", maxScorecardBytes))
		return
	}

	autoPlay, err := h.autoPlayService.Upload(r.Context(), matchID, header.Filename, data)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	resp := jsonResponse{
		"match_id":    autoPlay.MatchID,
		"info":        autoPlay.Info,
		"innings":     len(autoPlay.Innings),
		"total_balls": autoPlay.TotalBalls(),
		"file_url":    autoPlay.FileURL,
	}
	if err := writeJSON(w, http.StatusCreated, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Start godoc
// @Summary Start replaying the uploaded scorecard
// @Tags autoplay
// @Accept json
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Param input body speedInput false "Speed (0.5, 1, 2, 3)"
// @Success 200 {object} services.PlaybackStatus
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Already running"
// @Security BearerAuth
// @Router /autoplay/{matchID}/start [post]
func (h *AutoPlayHandler) Start(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input speedInput
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	status, err := h.autoPlayService.Start(r.Context(), matchID, input.Speed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Pause godoc
// @Summary Pause a running replay
// @Tags autoplay
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Success 200 {object} services.PlaybackStatus
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /autoplay/{matchID}/pause [post]
func (h *AutoPlayHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.autoPlayService.Pause)
}

// Stop godoc
// @Summary Stop a replay and rewind it
// @Tags autoplay
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Success 200 {object} services.PlaybackStatus
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /autoplay/{matchID}/stop [post]
func (h *AutoPlayHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.autoPlayService.Stop)
}

// Status godoc
// @Summary Replay progress
// @Tags autoplay
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Success 200 {object} services.PlaybackStatus
// @Failure 404 {object} map[string]string
// @Router /autoplay/{matchID}/status [get]
func (h *AutoPlayHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.autoPlayService.Status)
}

// ChangeSpeed godoc
// @Summary Change the replay speed
// @Tags autoplay
// @Accept json
// @Produce json
// @Param matchID path int true "Fixture ID"
// @Param input body speedInput true "Speed (0.5, 1, 2, 3)"
// @Success 200 {object} services.PlaybackStatus
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /autoplay/{matchID}/speed [put]
func (h *AutoPlayHandler) ChangeSpeed(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input speedInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	status, err := h.autoPlayService.ChangeSpeed(r.Context(), matchID, input.Speed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AutoPlayHandler) control(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, matchID int) (*services.PlaybackStatus, error)) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	status, err := op(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
