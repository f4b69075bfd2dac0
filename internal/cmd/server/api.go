package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/louisbranch/latchkey.house/internal/game/content"
	"github.com/louisbranch/latchkey.house/internal/game/domain"
	"github.com/louisbranch/latchkey.house/internal/game/projection"
	"github.com/louisbranch/latchkey.house/internal/game/rules"
	"github.com/louisbranch/latchkey.house/internal/game/service"
	"github.com/louisbranch/latchkey.house/internal/telemetry"
)

// api is the JSON surface consumed by the browser client.
type api struct {
	controller *service.Controller
	catalog    *content.Catalog
	tele       *telemetryRuntime
	logger     *log.Logger
}

func newAPI(controller *service.Controller, catalog *content.Catalog, tele *telemetryRuntime, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	a := &api{controller: controller, catalog: catalog, tele: tele, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/game", a.handleGame)
	mux.HandleFunc("POST /api/action", a.handleAction)
	mux.HandleFunc("POST /api/reset", a.handleReset)
	mux.HandleFunc("POST /api/signal", a.handleSignal)
	mux.HandleFunc("POST /api/visibility", a.handleVisibility)
	return mux
}

// gameView is the client's whole window into the engine: no raw history
// leaves the server.
type gameView struct {
	Location      domain.LocationID `json:"location"`
	State         domain.GameState  `json:"state"`
	Narrative     string            `json:"narrative"`
	Options       []content.Option  `json:"options"`
	SceneKey      string            `json:"sceneKey"`
	Visit         int               `json:"visit"`
	SolvedPuzzles []string          `json:"solvedPuzzles"`
}

func (a *api) view(h domain.History) gameView {
	location := projection.CurrentLocation(h)
	state := projection.CurrentState(h)
	visit := projection.VisitCount(location, h, len(h))
	return gameView{
		Location:      location,
		State:         state,
		Narrative:     a.catalog.Narrative(location, visit),
		Options:       a.catalog.Options(h, a.controller.Mode()),
		SceneKey:      a.catalog.SceneKey(h),
		Visit:         visit,
		SolvedPuzzles: rules.SolvedPuzzles(state),
	}
}

func (a *api) handleGame(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK, a.view(a.controller.History()))
}

func (a *api) handleAction(w http.ResponseWriter, r *http.Request) {
	action, err := decodeAction(r)
	if err != nil {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "MALFORMED_ACTION"})
		return
	}

	before := rules.SolvedPuzzles(projection.CurrentState(a.controller.History()))
	h, err := a.controller.AppendAction(r.Context(), action)
	if err != nil {
		if ruleErr, ok := rules.AsRuleError(err); ok {
			a.respond(w, http.StatusBadRequest, map[string]string{"error": string(ruleErr.Code)})
			return
		}
		a.logger.Printf("append action: %v", err)
		a.respond(w, http.StatusInternalServerError, map[string]string{"error": "INTERNAL"})
		return
	}

	for _, puzzleKey := range newlySolved(before, rules.SolvedPuzzles(projection.CurrentState(h))) {
		a.tele.noteSolved(puzzleKey)
	}
	a.respond(w, http.StatusOK, a.view(h))
}

func (a *api) handleReset(w http.ResponseWriter, r *http.Request) {
	h := a.controller.Reset(r.Context())
	a.tele.publish(telemetry.Signal{Type: telemetry.SignalNewGame})
	a.respond(w, http.StatusOK, a.view(h))
}

func (a *api) handleSignal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   string         `json:"type"`
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "MALFORMED_SIGNAL"})
		return
	}
	a.tele.publish(telemetry.Signal{Type: req.Type, Fields: req.Fields})
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "MALFORMED_VISIBILITY"})
		return
	}
	switch req.State {
	case "hidden":
		a.tele.hide()
	case "visible":
		a.tele.show()
	default:
		a.respond(w, http.StatusBadRequest, map[string]string{"error": "MALFORMED_VISIBILITY"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeAction accepts either a full action object or a bare action name.
func decodeAction(r *http.Request) (domain.Action, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return domain.Action{}, err
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return domain.ActionOf(name), nil
	}
	var action domain.Action
	if err := json.Unmarshal(raw, &action); err != nil {
		return domain.Action{}, err
	}
	return action, nil
}

func newlySolved(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, puzzleKey := range before {
		seen[puzzleKey] = true
	}
	var fresh []string
	for _, puzzleKey := range after {
		if !seen[puzzleKey] {
			fresh = append(fresh, puzzleKey)
		}
	}
	return fresh
}

func (a *api) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Printf("encode response: %v", err)
	}
}
