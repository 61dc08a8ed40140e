package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tilematch/internal/game"
	"tilematch/internal/viewmodel"
	"tilematch/views/pages"
)

type HomeHandler struct {
	store   *game.Store
	records Records
	log     zerolog.Logger
}

func NewHomeHandler(store *game.Store, records Records, logger zerolog.Logger) *HomeHandler {
	return &HomeHandler{store: store, records: records, log: logger}
}

func (h *HomeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/health", h.health)
	r.Post("/games", h.createGame)
	r.Post("/records/clear", h.clearRecords)
}

func (h *HomeHandler) home(w http.ResponseWriter, r *http.Request) {
	data := viewmodel.HomePage{Title: title}
	for _, d := range game.Difficulties() {
		level, _ := game.LevelFor(d)
		data.Difficulties = append(data.Difficulties, viewmodel.DifficultyOption{
			Value:    string(d),
			Label:    difficultyLabel(d),
			Pairs:    level.Pairs,
			Specials: level.Specials.Total(),
			Clock:    viewmodel.FormatClock(level.DurationSeconds),
		})
		data.Best = append(data.Best, bestView(r.Context(), h.records, h.log, d))
	}
	if r.URL.Query().Get("cleared") == "1" {
		data.Notice = "All records cleared."
	}
	render(w, r, pages.HomePage(data))
}

func (h *HomeHandler) createGame(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	d := game.Easy
	if v := r.FormValue("difficulty"); v != "" {
		parsed, err := game.ParseDifficulty(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d = parsed
	}

	id, _, err := h.store.CreateSession(d)
	if err != nil {
		h.log.Error().Err(err).Str("difficulty", string(d)).Msg("create session")
		http.Error(w, "could not start game", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+id, http.StatusSeeOther)
}

func (h *HomeHandler) clearRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.records.ClearAll(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("clear records")
		http.Error(w, "could not clear records", http.StatusInternalServerError)
		return
	}
	h.log.Info().Msg("records cleared")
	http.Redirect(w, r, "/?cleared=1", http.StatusSeeOther)
}

func (h *HomeHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": h.store.Sessions()})
}
