package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/leiwong/rpscan/internal/rank"
	"github.com/leiwong/rpscan/internal/screen"
	"github.com/leiwong/rpscan/internal/universe"
	"github.com/leiwong/rpscan/pkg/logger"
)

// LookupPeriods are the RPS lookback periods served by the single-code
// lookup endpoint.
var LookupPeriods = []int{50, 120, 250}

// ScreenHandler serves screening runs and single-instrument RPS lookups.
type ScreenHandler struct {
	builder *universe.Builder
	engine  *screen.Engine
	logger  *logger.Logger
}

// NewScreenHandler creates a screen handler.
func NewScreenHandler(builder *universe.Builder, engine *screen.Engine, log *logger.Logger) *ScreenHandler {
	return &ScreenHandler{
		builder: builder,
		engine:  engine,
		logger:  log,
	}
}

// resultDTO is the wire form of a screening result. Missing scores are
// null, never a sentinel number.
type resultDTO struct {
	Code            string              `json:"code"`
	RPS             map[string]*float64 `json:"rps"`
	MaxYearlyReturn *float64            `json:"max_yearly_return,omitempty"`
}

// Screen runs a profile over the current cache.
// GET /api/screen?profile=first-pass|strict
func (h *ScreenHandler) Screen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := r.URL.Query().Get("profile")
	if name == "" {
		name = "strict"
	}
	profile, err := screen.ProfileByName(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uni, err := h.builder.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Universe load failed")
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}

	results, err := h.engine.Run(ctx, uni, profile)
	if err != nil {
		h.logger.WithError(err).Error("Screen run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dtos := make([]resultDTO, 0, len(results))
	for _, res := range results {
		dto := resultDTO{
			Code: res.Code,
			RPS:  make(map[string]*float64, len(profile.RPSPeriods)),
		}
		for _, p := range profile.RPSPeriods {
			dto.RPS[strconv.Itoa(p)] = optional(res.RPS, p)
		}
		if profile.WithYearlyReturn && !math.IsNaN(res.MaxYearlyReturn) {
			v := res.MaxYearlyReturn
			dto.MaxYearlyReturn = &v
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":  profile.Name,
		"selected": len(dtos),
		"results":  dtos,
	})
}

// RPS returns one instrument's RPS scores across the universe.
// GET /api/rps/{code}
func (h *ScreenHandler) RPS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	if len(code) != 6 {
		writeError(w, http.StatusBadRequest, "code must be 6 digits")
		return
	}

	uni, err := h.builder.Load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Universe load failed")
		writeError(w, http.StatusServiceUnavailable, "cache unavailable")
		return
	}

	scores, found := rank.Lookup(uni, code, LookupPeriods)
	if !found {
		writeError(w, http.StatusNotFound, "code not in cache")
		return
	}

	rps := make(map[string]*float64, len(LookupPeriods))
	for _, p := range LookupPeriods {
		rps[strconv.Itoa(p)] = optional(scores, p)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code": code,
		"rps":  rps,
	})
}

func optional(scores map[int]float64, period int) *float64 {
	score, ok := scores[period]
	if !ok || math.IsNaN(score) {
		return nil
	}
	return &score
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
