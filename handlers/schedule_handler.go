package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Dosada05/uniplay/models"
	"github.com/Dosada05/uniplay/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(ss services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: ss}
}

// GenerateSchedule godoc
// @Summary Generate the round-robin and knockout fixtures of an event
// @Tags events
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 201 {object} services.ScheduleResult
// @Failure 400 {object} map[string]string "Not enough teams"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Schedule already generated"
// @Security BearerAuth
// @Router /events/{eventID}/schedule [post]
func (h *ScheduleHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.scheduleService.GenerateSchedule(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetEvent godoc
// @Summary Event with its full fixture list
// @Tags events
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} services.EventSchedule
// @Failure 404 {object} map[string]string
// @Router /events/{eventID} [get]
func (h *ScheduleHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	schedule, err := h.scheduleService.GetEventSchedule(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, schedule, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Leaderboard godoc
// @Summary Event leaderboard ordered by points
// @Tags events
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /events/{eventID}/leaderboard [get]
func (h *ScheduleHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.scheduleService.GetLeaderboard(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListFixtures godoc
// @Summary Fixtures of an event, optionally filtered by status
// @Tags events
// @Produce json
// @Param eventID path int true "Event ID"
// @Param status query string false "Comma separated statuses (Scheduled, InProgress, Completed, Postponed)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /events/{eventID}/fixtures [get]
func (h *ScheduleHandler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	statuses, err := parseStatuses(r.URL.Query()["status"])
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	fixtures, err := h.scheduleService.ListFixtures(r.Context(), eventID, statuses)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"fixtures": fixtures}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseStatuses(values []string) ([]models.MatchStatus, error) {
	var statuses []models.MatchStatus
	for _, v := range values {
		for _, raw := range strings.Split(v, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			status := models.MatchStatus(raw)
			if !status.IsValid() {
				return nil, fmt.Errorf("invalid status query parameter: %q", raw)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// LiveFixtures godoc
// @Summary Scheduled or in-progress fixtures starting within three hours of now
// @Tags events
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /events/{eventID}/fixtures/live [get]
func (h *ScheduleHandler) LiveFixtures(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	fixtures, err := h.scheduleService.ListLiveFixtures(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"fixtures": fixtures}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateFixtureResult godoc
// @Summary Update the status and score of a fixture
// @Tags fixtures
// @Accept json
// @Produce json
// @Param fixtureID path int true "Fixture ID"
// @Param input body services.UpdateMatchResultInput true "Result"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /fixtures/{fixtureID} [patch]
func (h *ScheduleHandler) UpdateFixtureResult(w http.ResponseWriter, r *http.Request) {
	fixtureID, err := getIDFromURL(r, "fixtureID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateMatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	fixture, err := h.scheduleService.UpdateMatchResult(r.Context(), fixtureID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"fixture": fixture}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
