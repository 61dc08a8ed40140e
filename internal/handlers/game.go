package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tilematch/internal/game"
	"tilematch/internal/viewmodel"
	"tilematch/views/components"
	"tilematch/views/pages"
)

const keepAliveInterval = 25 * time.Second

type GameHandler struct {
	store   *game.Store
	records Records
	log     zerolog.Logger
}

func NewGameHandler(store *game.Store, records Records, logger zerolog.Logger) *GameHandler {
	return &GameHandler{store: store, records: records, log: logger}
}

// RegisterRoutes mounts the request/response routes.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.gamePage)
		r.Get("/board", h.boardFragment)
		r.Post("/select/{tile}", h.selectTile)
		r.Post("/start", h.startRound)
		r.Post("/reset", h.resetRound)
		r.Post("/quit", h.quit)
	})
}

// RegisterStreams mounts the long-lived routes. They must stay outside any
// request timeout middleware.
func (h *GameHandler) RegisterStreams(r chi.Router) {
	r.Get("/game/{id}/stream", h.stream)
	r.Get("/game/{id}/ws", h.socket)
}

func (h *GameHandler) session(w http.ResponseWriter, r *http.Request) (string, *game.Engine, bool) {
	gameID := chi.URLParam(r, "id")
	engine, ok := h.store.GetSession(gameID)
	if !ok {
		http.NotFound(w, r)
		return "", nil, false
	}
	return gameID, engine, true
}

func (h *GameHandler) board(r *http.Request, gameID string, engine *game.Engine) viewmodel.BoardFragment {
	snap := engine.Snapshot()
	return boardFragment(gameID, snap, bestView(r.Context(), h.records, h.log, snap.Difficulty))
}

func (h *GameHandler) gamePage(w http.ResponseWriter, r *http.Request) {
	gameID, engine, ok := h.session(w, r)
	if !ok {
		return
	}
	render(w, r, pages.GamePage(viewmodel.GamePage{
		Title: title,
		Board: h.board(r, gameID, engine),
	}))
}

func (h *GameHandler) boardFragment(w http.ResponseWriter, r *http.Request) {
	gameID, engine, ok := h.session(w, r)
	if !ok {
		return
	}
	render(w, r, components.BoardFragment(h.board(r, gameID, engine)))
}

func (h *GameHandler) selectTile(w http.ResponseWriter, r *http.Request) {
	gameID, engine, ok := h.session(w, r)
	if !ok {
		return
	}
	tile, err := strconv.Atoi(chi.URLParam(r, "tile"))
	if err != nil {
		http.Error(w, "invalid tile", http.StatusBadRequest)
		return
	}
	accepted := engine.SelectTile(tile)
	h.log.Debug().Str("session", gameID).Int("tile", tile).Bool("accepted", accepted).Msg("select")
	h.done(w, r, gameID)
}

func (h *GameHandler) startRound(w http.ResponseWriter, r *http.Request) {
	gameID, engine, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var err error
	if v := r.FormValue("difficulty"); v != "" {
		d, perr := game.ParseDifficulty(v)
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		err = engine.StartRound(d)
	} else {
		err = engine.Restart()
	}
	switch {
	case errors.Is(err, game.ErrUnknownDifficulty):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.log.Error().Err(err).Str("session", gameID).Msg("start round")
		http.Error(w, "could not start round", http.StatusInternalServerError)
		return
	}
	h.done(w, r, gameID)
}

func (h *GameHandler) resetRound(w http.ResponseWriter, r *http.Request) {
	gameID, engine, ok := h.session(w, r)
	if !ok {
		return
	}
	engine.ResetRound()
	h.done(w, r, gameID)
}

func (h *GameHandler) quit(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	if h.store.RemoveSession(gameID) {
		h.log.Info().Str("session", gameID).Msg("session closed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// done answers a state-changing request: the client script gets 204 and
// waits for the stream, plain forms are sent back to the page.
func (h *GameHandler) done(w http.ResponseWriter, r *http.Request, gameID string) {
	if isPartial(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/game/"+gameID, http.StatusSeeOther)
}

func (h *GameHandler) stream(w http.ResponseWriter, r *http.Request) {
	gameID, engine, ok := h.session(w, r)
	if !ok {
		return
	}
	hub, ok := h.store.Broadcaster(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	sendBoard := func() {
		writeSSE(w, "board", renderToString(r, components.BoardFragment(h.board(r, gameID, engine))))
		flusher.Flush()
	}
	sendBoard()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-sub:
			if !ok {
				return
			}
			// One selection emits several events; render once for the burst.
			drain(sub)
			sendBoard()
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

func drain(ch <-chan game.Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
