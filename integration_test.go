package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// ---------- helpers ----------

// startTestServer spins up an httptest.Server backed by a live arena and
// hub. adminPassword == "" leaves the restart control disabled, as in a
// deployment without ADMIN_PASSWORD.
func startTestServer(t *testing.T, adminPassword string) (*httptest.Server, string, *Arena, func()) {
	t.Helper()

	// Minimal viewer dir so the static handler has something to serve
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)

	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	var auth *Auth
	if adminPassword != "" {
		auth, err = NewAuth(db, adminPassword)
		if err != nil {
			t.Fatalf("new auth: %v", err)
		}
	}

	arena := NewArena(db, nil, 7)
	go arena.Run()

	hub := NewHub(arena, auth)
	go hub.Run()

	mux := SetupRoutes(hub, tmpDir)
	srv := httptest.NewServer(mux)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	return srv, wsURL, arena, func() {
		arena.Stop()
		srv.Close()
		db.Close()
	}
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

// readJSON reads the next text envelope, skipping any interleaved binary
// pose frames the broadcast loop pushes concurrently.
func readJSON(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return env
	}
}

// readFrame reads the next binary message and decodes it as a pose frame,
// skipping text envelopes.
func readFrame(t *testing.T, conn *websocket.Conn) FrameState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if len(raw) > 0 && raw[0] == 0xFF {
			t.Fatal("internal framing marker leaked onto the wire")
		}
		var frame FrameState
		if err := msgpack.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		return frame
	}
}

// sendMsg sends a typed envelope over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	raw, _ := json.Marshal(Envelope{T: msgType, Data: data})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// dataMap extracts the Data field as map[string]interface{}.
func dataMap(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	raw, _ := json.Marshal(env.Data)
	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	return m
}

// loginToken posts the admin password and returns the minted token.
func loginToken(t *testing.T, srvURL, password string) string {
	t.Helper()
	body, _ := json.Marshal(LoginMsg{Password: password})
	resp, err := http.Post(srvURL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var tok TokenMsg
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("empty token")
	}
	return tok.Token
}

func currentRoundSeq(a *Arena) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.roundSeq
}

// waitForRoundSeq polls until the sequence passes want or the deadline hits.
func waitForRoundSeq(a *Arena, want int64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if currentRoundSeq(a) >= want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// ---------- viewer handshake ----------

func TestViewerHandshake(t *testing.T) {
	srv, wsURL, _, cleanup := startTestServer(t, "")
	_ = srv
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()

	welcome := readJSON(t, conn)
	if welcome.T != MsgWelcome {
		t.Fatalf("first envelope = %s, want %s", welcome.T, MsgWelcome)
	}
	d := dataMap(t, welcome)
	if d["br"].(float64) != BoundaryRadius {
		t.Errorf("boundary radius = %v, want %v", d["br"], BoundaryRadius)
	}
	if d["fr"].(float64) != FlagRadius {
		t.Errorf("flag radius = %v, want %v", d["fr"], FlagRadius)
	}
	roster, ok := d["roster"].([]interface{})
	if !ok || len(roster) != len(Roster) {
		t.Errorf("roster length = %d, want %d", len(roster), len(Roster))
	}

	board := readJSON(t, conn)
	if board.T != MsgLeaderboard {
		t.Fatalf("second envelope = %s, want %s", board.T, MsgLeaderboard)
	}
}

// ---------- binary frame stream ----------

func TestFrameStreamOverWire(t *testing.T) {
	srv, wsURL, _, cleanup := startTestServer(t, "")
	_ = srv
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()

	frame := readFrame(t, conn)
	if len(frame.Flags) != len(Roster) {
		t.Errorf("frame flags = %d, want %d", len(frame.Flags), len(Roster))
	}
	if frame.ArcFrac != 1-GapDegrees/360 {
		t.Errorf("arc fraction = %v, want %v", frame.ArcFrac, 1-GapDegrees/360)
	}
	if !frame.Running {
		t.Error("fresh round reported as not running")
	}

	// Frames keep coming and the tick counter advances
	next := readFrame(t, conn)
	if next.Tick <= frame.Tick {
		t.Errorf("tick did not advance: %d then %d", frame.Tick, next.Tick)
	}
}

// ---------- leaderboard over WS and HTTP ----------

func TestLeaderboardRequestOverWS(t *testing.T) {
	srv, wsURL, arena, cleanup := startTestServer(t, "")
	_ = srv
	defer cleanup()

	arena.db.RecordWin("ar", "Argentina")
	arena.db.RecordWin("ar", "Argentina")
	arena.db.RecordWin("br", "Brazil")

	conn := dialWS(t, wsURL)
	defer conn.Close()
	_ = readJSON(t, conn) // welcome

	board := readJSON(t, conn)
	if board.T != MsgLeaderboard {
		t.Fatalf("envelope = %s, want %s", board.T, MsgLeaderboard)
	}
	entries := dataMap(t, board)["entries"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	top := entries[0].(map[string]interface{})
	if top["code"] != "ar" || top["wins"].(float64) != 2 {
		t.Errorf("top entry = %v, want ar with 2 wins", top)
	}

	// An explicit request gets the same table back
	sendMsg(t, conn, MsgLeaderboard, nil)
	again := readJSON(t, conn)
	if again.T != MsgLeaderboard {
		t.Fatalf("envelope = %s, want %s", again.T, MsgLeaderboard)
	}
	if n := len(dataMap(t, again)["entries"].([]interface{})); n != 2 {
		t.Errorf("requested entries = %d, want 2", n)
	}
}

func TestHTTPLeaderboardEndpoint(t *testing.T) {
	srv, _, arena, cleanup := startTestServer(t, "")
	defer cleanup()

	arena.db.RecordWin("de", "Germany")

	resp, err := http.Get(srv.URL + "/api/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("GET status = %d, want 200", resp.StatusCode)
	}
	var board LeaderboardMsg
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(board.Entries) != 1 || board.Entries[0].Code != "de" {
		t.Errorf("entries = %+v, want single de row", board.Entries)
	}

	post, err := http.Post(srv.URL+"/api/leaderboard", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", post.StatusCode)
	}
}

// ---------- static viewer and QR ----------

func TestStaticViewerServed(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t, "")
	defer cleanup()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<html>") {
		t.Errorf("root did not serve index.html, got %q", body)
	}
}

func TestQREndpoint(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t, "")
	defer cleanup()

	resp, err := http.Get(srv.URL + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("GET /qr status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	magic := make([]byte, 4)
	io.ReadFull(resp.Body, magic)
	if !bytes.Equal(magic, []byte{0x89, 'P', 'N', 'G'}) {
		t.Errorf("body does not start with PNG magic: % x", magic)
	}
}

// ---------- admin login and restart ----------

func TestLoginAndRestartFlow(t *testing.T) {
	srv, _, arena, cleanup := startTestServer(t, "hunter2")
	defer cleanup()

	// Wrong password is rejected
	body, _ := json.Marshal(LoginMsg{Password: "nope"})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}

	token := loginToken(t, srv.URL, "hunter2")

	// Restart without a token is rejected
	resp, err = http.Post(srv.URL+"/api/restart", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("tokenless restart status = %d, want 401", resp.StatusCode)
	}

	seq := currentRoundSeq(arena)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/restart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("restart status = %d, want 204", resp.StatusCode)
	}
	if currentRoundSeq(arena) != seq+1 {
		t.Errorf("round sequence = %d, want %d", currentRoundSeq(arena), seq+1)
	}
}

func TestAdminEndpointsDisabledWithoutPassword(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t, "")
	defer cleanup()

	resp, err := http.Post(srv.URL+"/api/login", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("login status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/restart", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("restart status = %d, want 404", resp.StatusCode)
	}
}

func TestRestartOverWS(t *testing.T) {
	srv, wsURL, arena, cleanup := startTestServer(t, "hunter2")
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	_ = readJSON(t, conn) // welcome
	_ = readJSON(t, conn) // leaderboard

	// A bogus token gets an error envelope and no restart
	seq := currentRoundSeq(arena)
	sendMsg(t, conn, MsgRestart, RestartMsg{Token: "not-a-token"})
	env := readJSON(t, conn)
	if env.T != MsgError {
		t.Fatalf("envelope = %s, want %s", env.T, MsgError)
	}
	if currentRoundSeq(arena) != seq {
		t.Error("round restarted on invalid token")
	}

	token := loginToken(t, srv.URL, "hunter2")
	sendMsg(t, conn, MsgRestart, RestartMsg{Token: token})
	if !waitForRoundSeq(arena, seq+1, 2*time.Second) {
		t.Error("round did not restart on valid token")
	}
}

// ---------- connection limits ----------

func TestPerIPConnectionLimit(t *testing.T) {
	srv, wsURL, _, cleanup := startTestServer(t, "")
	_ = srv
	defer cleanup()

	conns := make([]*websocket.Conn, 0, maxConnsPerIP)
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for i := 0; i < maxConnsPerIP; i++ {
		conns = append(conns, dialWS(t, wsURL))
	}

	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Errorf("connection %d accepted, want rejection", maxConnsPerIP+1)
	}
}
