package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"tilematch/internal/game"
	"tilematch/internal/viewmodel"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxCommandSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// socketCommand is a client message: {"action":"select","tile":3},
// {"action":"start","difficulty":"hard"} or {"action":"reset"}.
type socketCommand struct {
	Action     string `json:"action"`
	Tile       int    `json:"tile"`
	Difficulty string `json:"difficulty,omitempty"`
}

type socketTile struct {
	ID       int    `json:"id"`
	Face     string `json:"face,omitempty"`
	Hidden   bool   `json:"hidden"`
	Matched  bool   `json:"matched"`
	Special  bool   `json:"special"`
	Mismatch bool   `json:"mismatch"`
}

type socketState struct {
	RoundID       string       `json:"roundId"`
	Phase         string       `json:"phase"`
	Difficulty    string       `json:"difficulty"`
	Score         int          `json:"score"`
	TimeRemaining int          `json:"timeRemaining"`
	Clock         string       `json:"clock"`
	MatchedPairs  int          `json:"matchedPairs"`
	Pairs         int          `json:"pairs"`
	InputLocked   bool         `json:"inputLocked"`
	Frozen        bool         `json:"frozen"`
	Tiles         []socketTile `json:"tiles"`
}

// socketMessage is sent on connect, after every engine event and in reply
// to a rejected command.
type socketMessage struct {
	Event    *game.Event `json:"event,omitempty"`
	Accepted *bool       `json:"accepted,omitempty"`
	Error    string      `json:"error,omitempty"`
	State    socketState `json:"state"`
}

func socketStateOf(snap game.Snapshot) socketState {
	views := tileViews(snap)
	tiles := make([]socketTile, 0, len(views))
	for _, v := range views {
		tiles = append(tiles, socketTile{
			ID:       v.ID,
			Face:     v.Face,
			Hidden:   v.Hidden,
			Matched:  v.Matched,
			Special:  v.Special,
			Mismatch: v.Mismatch,
		})
	}
	return socketState{
		RoundID:       snap.RoundID,
		Phase:         string(snap.Phase),
		Difficulty:    string(snap.Difficulty),
		Score:         snap.Score,
		TimeRemaining: snap.TimeRemaining,
		Clock:         viewmodel.FormatClock(snap.TimeRemaining),
		MatchedPairs:  snap.MatchedPairs,
		Pairs:         snap.Pairs,
		InputLocked:   snap.InputLocked,
		Frozen:        snap.Frozen,
		Tiles:         tiles,
	}
}

// socket serves a session over a websocket. Commands are read on their own
// goroutine; every write happens on this one.
func (h *GameHandler) socket(w http.ResponseWriter, r *http.Request) {
	gameID, engine, ok := h.session(w, r)
	if !ok {
		return
	}
	hub, ok := h.store.Broadcaster(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("session", gameID).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	replies := make(chan socketMessage, 8)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		h.readCommands(conn, gameID, engine, replies)
	}()

	send := func(msg socketMessage) bool {
		msg.State = socketStateOf(engine.Snapshot())
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug().Err(err).Str("session", gameID).Msg("websocket write")
			return false
		}
		return true
	}
	if !send(socketMessage{}) {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-sub:
			if !ok {
				// The session was removed.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if !send(socketMessage{Event: &ev}) {
				return
			}
		case msg := <-replies:
			if !send(msg) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *GameHandler) readCommands(conn *websocket.Conn, gameID string, engine *game.Engine, replies chan<- socketMessage) {
	conn.SetReadLimit(maxCommandSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd socketCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
		if current, ok := h.store.GetSession(gameID); !ok || current != engine {
			return
		}
		reply := applyCommand(engine, cmd)
		if reply == nil {
			continue
		}
		select {
		case replies <- *reply:
		default:
		}
	}
}

// applyCommand runs cmd against engine. It returns a reply only when the
// command produced no engine event the client would otherwise see.
func applyCommand(engine *game.Engine, cmd socketCommand) *socketMessage {
	switch cmd.Action {
	case "select":
		if engine.SelectTile(cmd.Tile) {
			return nil
		}
		rejected := false
		return &socketMessage{Accepted: &rejected}
	case "start":
		var err error
		if cmd.Difficulty != "" {
			var d game.Difficulty
			if d, err = game.ParseDifficulty(cmd.Difficulty); err == nil {
				err = engine.StartRound(d)
			}
		} else {
			err = engine.Restart()
		}
		if err != nil {
			return &socketMessage{Error: err.Error()}
		}
		return nil
	case "reset":
		engine.ResetRound()
		return nil
	default:
		return &socketMessage{Error: "unknown action " + strconv.Quote(cmd.Action)}
	}
}
