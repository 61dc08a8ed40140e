package handlers

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tilematch/internal/best"
	"tilematch/internal/game"
	"tilematch/pkg/realtime"
)

type testApp struct {
	router  *chi.Mux
	store   *game.Store
	records *best.MemoryStore
	sched   *realtime.ManualScheduler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	records := best.NewMemoryStore()
	sched := realtime.NewManualScheduler(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	store := game.NewStore(records, sched, zerolog.Nop())

	r := chi.NewRouter()
	NewHomeHandler(store, records, zerolog.Nop()).RegisterRoutes(r)
	gh := NewGameHandler(store, records, zerolog.Nop())
	gh.RegisterRoutes(r)
	gh.RegisterStreams(r)
	return &testApp{router: r, store: store, records: records, sched: sched}
}

func (a *testApp) do(method, target string, form url.Values, partial bool) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if partial {
		req.Header.Set("Hx-Request", "true")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) session(t *testing.T, d game.Difficulty) (string, *game.Engine) {
	t.Helper()
	id, engine, err := a.store.CreateSession(d)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return id, engine
}

// pairs groups the pair tiles of a snapshot by symbol.
func pairs(snap game.Snapshot) [][2]int {
	byValue := map[string][]int{}
	var order []string
	for _, tile := range snap.Tiles {
		if tile.Kind != game.KindPair {
			continue
		}
		if _, ok := byValue[tile.Value]; !ok {
			order = append(order, tile.Value)
		}
		byValue[tile.Value] = append(byValue[tile.Value], tile.ID)
	}
	out := make([][2]int, 0, len(order))
	for _, v := range order {
		ids := byValue[v]
		out = append(out, [2]int{ids[0], ids[1]})
	}
	return out
}

func TestHome(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Tile Match", `value="easy"`, `value="medium"`, `value="hard"`, "Best: none yet", "01:30"} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %q", want)
		}
	}
}

func TestCreateGame(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodPost, "/games", url.Values{"difficulty": {"Medium"}}, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status %d, want 303", rec.Code)
	}
	loc := rec.Header().Get("Location")
	id := strings.TrimPrefix(loc, "/game/")
	engine, ok := app.store.GetSession(id)
	if !ok {
		t.Fatalf("no session behind redirect %q", loc)
	}
	if snap := engine.Snapshot(); snap.Difficulty != game.Medium || len(snap.Tiles) != 25 {
		t.Errorf("Difficulty %q with %d tiles, want medium with 25", snap.Difficulty, len(snap.Tiles))
	}

	rec = app.do(http.MethodPost, "/games", url.Values{"difficulty": {"impossible"}}, false)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown difficulty: status %d, want 400", rec.Code)
	}
}

func TestGamePage_HidesFaces(t *testing.T) {
	app := newTestApp(t)
	id, _ := app.session(t, game.Easy)

	rec := app.do(http.MethodGet, "/game/"+id, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if n := strings.Count(body, `data-state="hidden"`); n != 15 {
		t.Errorf("%d hidden tiles rendered, want 15", n)
	}
	for _, s := range game.Symbols {
		if strings.Contains(body, s) {
			t.Fatalf("hidden symbol %q leaked into page", s)
		}
	}
	for _, face := range []string{"💣", "🃏"} {
		if strings.Contains(body, face) {
			t.Fatalf("hidden special %q leaked into page", face)
		}
	}
	if !strings.Contains(body, `data-stream="/game/`+id+`/stream"`) {
		t.Error("page missing stream URL")
	}

	if rec := app.do(http.MethodGet, "/game/missing", nil, false); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status %d, want 404", rec.Code)
	}
}

func TestSelectTile(t *testing.T) {
	app := newTestApp(t)
	id, engine := app.session(t, game.Easy)
	pair := pairs(engine.Snapshot())[0]

	for _, tile := range pair {
		rec := app.do(http.MethodPost, "/game/"+id+"/select/"+strconv.Itoa(tile), nil, true)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("select %d: status %d, want 204", tile, rec.Code)
		}
	}
	snap := engine.Snapshot()
	if snap.MatchedPairs != 1 || snap.Score != game.MatchReward {
		t.Errorf("MatchedPairs %d Score %d, want 1 %d", snap.MatchedPairs, snap.Score, game.MatchReward)
	}

	rec := app.do(http.MethodGet, "/game/"+id+"/board", nil, false)
	body := rec.Body.String()
	if !strings.Contains(body, "Score 100") || !strings.Contains(body, "1/6 pairs") {
		t.Errorf("board fragment does not show the match: %s", body)
	}
	if n := strings.Count(body, `data-state="matched"`); n != 2 {
		t.Errorf("%d matched tiles rendered, want 2", n)
	}

	rec = app.do(http.MethodPost, "/game/"+id+"/select/"+strconv.Itoa(pair[0]), nil, false)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("form select: status %d, want 303", rec.Code)
	}
	if rec := app.do(http.MethodPost, "/game/"+id+"/select/abc", nil, true); rec.Code != http.StatusBadRequest {
		t.Errorf("bad tile: status %d, want 400", rec.Code)
	}
}

func TestStartResetQuit(t *testing.T) {
	app := newTestApp(t)
	id, engine := app.session(t, game.Easy)
	first := engine.Snapshot().RoundID

	rec := app.do(http.MethodPost, "/game/"+id+"/start", url.Values{"difficulty": {"hard"}}, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("start: status %d, want 204", rec.Code)
	}
	snap := engine.Snapshot()
	if snap.Difficulty != game.Hard || len(snap.Tiles) != 35 || snap.RoundID == first {
		t.Errorf("after start: %q, %d tiles, round %q", snap.Difficulty, len(snap.Tiles), snap.RoundID)
	}

	if rec := app.do(http.MethodPost, "/game/"+id+"/start", url.Values{"difficulty": {"extreme"}}, true); rec.Code != http.StatusBadRequest {
		t.Errorf("start unknown difficulty: status %d, want 400", rec.Code)
	}

	app.do(http.MethodPost, "/game/"+id+"/reset", nil, false)
	if snap := engine.Snapshot(); snap.Phase != game.PhaseIdle {
		t.Fatalf("Phase %q after reset, want idle", snap.Phase)
	}
	body := app.do(http.MethodGet, "/game/"+id+"/board", nil, false).Body.String()
	if !strings.Contains(body, "Press New round") {
		t.Error("idle board missing prompt")
	}

	app.do(http.MethodPost, "/game/"+id+"/start", nil, true)
	if snap := engine.Snapshot(); snap.Phase != game.PhaseRunning || snap.Difficulty != game.Hard {
		t.Errorf("restart: Phase %q Difficulty %q, want running hard", snap.Phase, snap.Difficulty)
	}

	rec = app.do(http.MethodPost, "/game/"+id+"/quit", nil, false)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Errorf("quit: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if _, ok := app.store.GetSession(id); ok {
		t.Error("session survived quit")
	}
	if app.sched.Pending() != 0 {
		t.Errorf("Pending %d after quit, want 0", app.sched.Pending())
	}
}

func TestWinRecordsBest(t *testing.T) {
	app := newTestApp(t)
	id, engine := app.session(t, game.Easy)
	app.sched.Advance(3 * time.Second)

	for _, pair := range pairs(engine.Snapshot()) {
		for _, tile := range pair {
			app.do(http.MethodPost, "/game/"+id+"/select/"+strconv.Itoa(tile), nil, true)
		}
	}
	if phase := engine.Snapshot().Phase; phase != game.PhaseWon {
		t.Fatalf("Phase %q, want won", phase)
	}

	rec, found, _ := app.records.QueryBest(context.Background(), "easy")
	if !found || rec.Score != 600 || rec.ElapsedSeconds != 3 {
		t.Fatalf("best %+v found %v, want 600 in 3s", rec, found)
	}

	board := app.do(http.MethodGet, "/game/"+id+"/board", nil, false).Body.String()
	if !strings.Contains(board, "You found every pair! Score 600 in 00:03.") {
		t.Errorf("won board missing message: %s", board)
	}
	home := app.do(http.MethodGet, "/", nil, false).Body.String()
	if !strings.Contains(home, "Best: 600 in 00:03") {
		t.Error("home page missing new best")
	}

	res := app.do(http.MethodPost, "/records/clear", nil, false)
	if res.Code != http.StatusSeeOther || res.Header().Get("Location") != "/?cleared=1" {
		t.Fatalf("clear: status %d location %q", res.Code, res.Header().Get("Location"))
	}
	if _, found, _ := app.records.QueryBest(context.Background(), "easy"); found {
		t.Error("record survived clear")
	}
	if home := app.do(http.MethodGet, "/?cleared=1", nil, false).Body.String(); !strings.Contains(home, "All records cleared.") {
		t.Error("home page missing cleared notice")
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	app.session(t, game.Easy)
	rec := app.do(http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"ok":true,"sessions":1}` {
		t.Errorf("body %s", got)
	}
}

func TestStream(t *testing.T) {
	app := newTestApp(t)
	id, engine := app.session(t, game.Easy)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/game/"+id+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type %q", ct)
	}

	events := make(chan string, 8)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		var data strings.Builder
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "data: "):
				data.WriteString(strings.TrimPrefix(line, "data: "))
			case line == "" && data.Len() > 0:
				events <- data.String()
				data.Reset()
			}
		}
	}()

	next := func() string {
		t.Helper()
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("stream closed")
			}
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for board event")
		}
		return ""
	}

	if first := next(); !strings.Contains(first, `id="board"`) || !strings.Contains(first, "Score 0") {
		t.Fatalf("initial event is not the board: %s", first)
	}

	pair := pairs(engine.Snapshot())[0]
	engine.SelectTile(pair[0])
	engine.SelectTile(pair[1])
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("board never showed the match")
		default:
		}
		if strings.Contains(next(), "Score 100") {
			return
		}
	}
}

func TestSocket(t *testing.T) {
	app := newTestApp(t)
	id, engine := app.session(t, game.Easy)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/game/"+id+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello socketMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.State.Phase != "running" || len(hello.State.Tiles) != 15 || hello.State.Clock != "01:30" {
		t.Fatalf("hello state %+v", hello.State)
	}
	for _, tile := range hello.State.Tiles {
		if tile.Face != "" {
			t.Fatalf("hidden tile %d sent face %q", tile.ID, tile.Face)
		}
	}

	pair := pairs(engine.Snapshot())[0]
	if err := conn.WriteJSON(socketCommand{Action: "select", Tile: pair[0]}); err != nil {
		t.Fatalf("write: %v", err)
	}
	revealed := false
	for i := 0; i < 10 && !revealed; i++ {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Event != nil && msg.Event.Kind == game.EventRevealed {
			revealed = true
			if msg.State.Tiles[pair[0]].Face == "" {
				t.Error("revealed tile has no face")
			}
		}
	}
	if !revealed {
		t.Fatal("no revealed event")
	}

	if err := conn.WriteJSON(socketCommand{Action: "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var msg socketMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(msg.Error, "unknown action") {
		t.Errorf("error %q, want unknown action", msg.Error)
	}
}

func TestApplyCommand(t *testing.T) {
	engine := game.NewEngine(game.Options{Scheduler: realtime.NewManualScheduler(time.Now())})
	if msg := applyCommand(engine, socketCommand{Action: "start", Difficulty: "medium"}); msg != nil {
		t.Fatalf("start: %+v", msg)
	}
	if d := engine.Snapshot().Difficulty; d != game.Medium {
		t.Errorf("Difficulty %q, want medium", d)
	}
	msg := applyCommand(engine, socketCommand{Action: "select", Tile: 999})
	if msg == nil || msg.Accepted == nil || *msg.Accepted {
		t.Errorf("out-of-range select: %+v, want rejected", msg)
	}
	if msg := applyCommand(engine, socketCommand{Action: "start", Difficulty: "nope"}); msg == nil || msg.Error == "" {
		t.Error("unknown difficulty accepted")
	}
	applyCommand(engine, socketCommand{Action: "reset"})
	if p := engine.Snapshot().Phase; p != game.PhaseIdle {
		t.Errorf("Phase %q after reset, want idle", p)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	line := buf.String()
	for _, want := range []string{`"request_id":"`, `"method":"GET"`, `"path":"/ping"`, `"status":200`, `"bytes":4`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}

func TestSocket_ClosedWhenSessionRemoved(t *testing.T) {
	app := newTestApp(t)
	id, engine := app.session(t, game.Easy)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/game/"+id+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello socketMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if rec := app.do(http.MethodPost, "/game/"+id+"/quit", nil, false); rec.Code != http.StatusSeeOther {
		t.Fatalf("quit: status %d", rec.Code)
	}

	for i := 0; ; i++ {
		var msg socketMessage
		err := conn.ReadJSON(&msg)
		if err == nil {
			if i > 5 {
				t.Fatal("socket still open after quit")
			}
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
			t.Fatalf("read error %v, want going-away close", err)
		}
		break
	}

	// Commands sent after the close never reach the removed engine.
	_ = conn.WriteJSON(socketCommand{Action: "start", Difficulty: "hard"})
	if p := engine.Snapshot().Phase; p != game.PhaseIdle {
		t.Errorf("removed engine Phase %q, want idle", p)
	}
}

func TestStream_EndsWhenSessionRemoved(t *testing.T) {
	app := newTestApp(t)
	id, _ := app.session(t, game.Easy)
	srv := httptest.NewServer(app.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/game/" + id + "/stream")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		sawBoard := false
		for sc.Scan() {
			if !sawBoard && sc.Text() == "event: board" {
				sawBoard = true
				app.store.RemoveSession(id)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream still open after the session was removed")
	}
}
