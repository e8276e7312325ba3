// Package mock provides a fake Jet daemon for testing.
package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Daemon is an in-process Jet daemon serving fetch and unfetch over a
// websocket. It holds a set of paths and notifies matching fetch
// registrations when paths are added, changed or removed.
type Daemon struct {
	// Handlers are callbacks overriding default request handling.
	Handlers DaemonHandlers

	// FetchAllMethod makes unfiltered fetches notify with the method
	// "fetch_all" instead of their registration id.
	FetchAllMethod bool

	server   *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	states    map[string]json.RawMessage
	sessions  map[*websocket.Conn]*session
	requests  []*wire.Request
	connected chan struct{}
}

// DaemonHandlers holds callbacks for daemon operations.
type DaemonHandlers struct {
	// OnRequest is called for every request before default handling.
	// If handled is true, resp is sent instead (nil sends nothing).
	OnRequest func(req *wire.Request) (resp *wire.Response, handled bool)
}

// session is one client connection.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	// fetches is guarded by Daemon.mu.
	fetches map[int]registration
}

type registration struct {
	matcher matcher.Matcher
	method  any
}

func (s *session) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.writeRaw(data)
}

func (s *session) writeRaw(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// NewDaemon starts a new fake daemon on a local port.
func NewDaemon() *Daemon {
	d := &Daemon{
		states:    make(map[string]json.RawMessage),
		sessions:  make(map[*websocket.Conn]*session),
		connected: make(chan struct{}, 16),
	}
	d.server = httptest.NewServer(http.HandlerFunc(d.serve))
	return d
}

// URL returns the websocket URL of the daemon.
func (d *Daemon) URL() string {
	return "ws" + strings.TrimPrefix(d.server.URL, "http") + "/api/jet/"
}

// Close disconnects all clients and stops the daemon.
func (d *Daemon) Close() {
	d.Disconnect()
	d.server.Close()
}

// Disconnect sends a close frame to every client and drops the connections.
func (d *Daemon) Disconnect() {
	for _, s := range d.snapshotSessions() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down")
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.writeMu.Unlock()
		s.conn.Close()
	}
}

// WaitForConnection blocks until a client connects.
func (d *Daemon) WaitForConnection(timeout time.Duration) error {
	select {
	case <-d.connected:
		return nil
	case <-time.After(timeout):
		return ErrNoConnection
	}
}

func (d *Daemon) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s := &session{conn: conn, fetches: make(map[int]registration)}

	d.mu.Lock()
	d.sessions[conn] = s
	d.mu.Unlock()

	select {
	case d.connected <- struct{}{}:
	default:
	}

	defer func() {
		d.mu.Lock()
		delete(d.sessions, conn)
		d.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := wire.DecodeRequest(data)
		if err != nil {
			_ = s.write(&wire.Response{
				JSONRPC: wire.JSONRPCVersion,
				Error:   &wire.Error{Code: wire.ErrCodeParseError, Message: err.Error()},
			})
			continue
		}

		d.mu.Lock()
		d.requests = append(d.requests, req)
		d.mu.Unlock()

		d.handle(s, req)
	}
}

func (d *Daemon) handle(s *session, req *wire.Request) {
	if d.Handlers.OnRequest != nil {
		if resp, handled := d.Handlers.OnRequest(req); handled {
			if resp != nil {
				_ = s.write(resp)
			}
			return
		}
	}

	switch req.Method {
	case wire.MethodFetch:
		d.handleFetch(s, req)
	case wire.MethodUnfetch:
		d.handleUnfetch(s, req)
	default:
		_ = s.write(errorResponse(req.ID, wire.ErrCodeMethodNotFound, "Method not found"))
	}
}

func (d *Daemon) handleFetch(s *session, req *wire.Request) {
	var params struct {
		Path            *matcher.PathFilter `json:"path"`
		CaseInsensitive bool                `json:"caseInsensitive"`
		ID              *int                `json:"id"`
	}
	if err := json.Unmarshal(rawParams(req), &params); err != nil || params.ID == nil {
		_ = s.write(errorResponse(req.ID, wire.ErrCodeInvalidParams, "Invalid params"))
		return
	}

	reg := registration{matcher: params.Path.Matcher(params.CaseInsensitive), method: *params.ID}
	if d.FetchAllMethod && params.Path == nil {
		reg.method = wire.MethodFetchAll
	}

	d.mu.Lock()
	s.fetches[*params.ID] = reg
	var initial []string
	for path := range d.states {
		if reg.matcher.Match(path) {
			initial = append(initial, path)
		}
	}
	slices.Sort(initial)
	values := make([]json.RawMessage, len(initial))
	for i, path := range initial {
		values[i] = d.states[path]
	}
	d.mu.Unlock()

	resp := wire.SuccessResponse(req.ID)
	resp.JSONRPC = wire.JSONRPCVersion
	if err := s.write(resp); err != nil {
		return
	}
	for i, path := range initial {
		_ = s.write(notification(reg.method, wire.EventAdd, path, values[i]))
	}
}

func (d *Daemon) handleUnfetch(s *session, req *wire.Request) {
	var params struct {
		ID *int `json:"id"`
	}
	if err := json.Unmarshal(rawParams(req), &params); err != nil || params.ID == nil {
		_ = s.write(errorResponse(req.ID, wire.ErrCodeInvalidParams, "Invalid params"))
		return
	}

	d.mu.Lock()
	delete(s.fetches, *params.ID)
	d.mu.Unlock()

	resp := wire.SuccessResponse(req.ID)
	resp.JSONRPC = wire.JSONRPCVersion
	_ = s.write(resp)
}

// Add adds a path and notifies matching fetches.
func (d *Daemon) Add(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if _, exists := d.states[path]; exists {
		d.mu.Unlock()
		return ErrPathExists
	}
	d.states[path] = raw
	targets := d.targets(path)
	d.mu.Unlock()

	d.notify(targets, wire.EventAdd, path, raw)
	return nil
}

// Change updates the value of a path and notifies matching fetches.
func (d *Daemon) Change(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if _, exists := d.states[path]; !exists {
		d.mu.Unlock()
		return ErrPathNotFound
	}
	d.states[path] = raw
	targets := d.targets(path)
	d.mu.Unlock()

	d.notify(targets, wire.EventChange, path, raw)
	return nil
}

// Remove removes a path and notifies matching fetches.
func (d *Daemon) Remove(path string) error {
	d.mu.Lock()
	raw, exists := d.states[path]
	if !exists {
		d.mu.Unlock()
		return ErrPathNotFound
	}
	delete(d.states, path)
	targets := d.targets(path)
	d.mu.Unlock()

	d.notify(targets, wire.EventRemove, path, raw)
	return nil
}

// SendRaw writes data as a text frame to every client.
func (d *Daemon) SendRaw(data []byte) {
	for _, s := range d.snapshotSessions() {
		_ = s.writeRaw(data)
	}
}

// Requests returns all requests received so far.
func (d *Daemon) Requests() []*wire.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.requests)
}

// RequestCount returns the number of received requests with the given method.
func (d *Daemon) RequestCount(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

// FetchCount returns the number of active fetch registrations.
func (d *Daemon) FetchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sessions {
		n += len(s.fetches)
	}
	return n
}

type target struct {
	session *session
	method  any
}

// targets returns the registrations matching path. Caller must hold the lock.
func (d *Daemon) targets(path string) []target {
	var out []target
	for _, s := range d.sessions {
		ids := make([]int, 0, len(s.fetches))
		for id := range s.fetches {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			reg := s.fetches[id]
			if reg.matcher.Match(path) {
				out = append(out, target{session: s, method: reg.method})
			}
		}
	}
	return out
}

func (d *Daemon) notify(targets []target, event wire.EventKind, path string, value json.RawMessage) {
	for _, t := range targets {
		_ = t.session.write(notification(t.method, event, path, value))
	}
}

func (d *Daemon) snapshotSessions() []*session {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*session, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s)
	}
	return out
}

func notification(method any, event wire.EventKind, path string, value json.RawMessage) map[string]any {
	return map[string]any{
		"jsonrpc": wire.JSONRPCVersion,
		"method":  method,
		"params": map[string]any{
			"event": event,
			"path":  path,
			"value": value,
		},
	}
}

func errorResponse(id int, code int, message string) *wire.Response {
	return &wire.Response{
		JSONRPC: wire.JSONRPCVersion,
		ID:      id,
		Error:   &wire.Error{Code: code, Message: message},
	}
}

func rawParams(req *wire.Request) json.RawMessage {
	if raw, ok := req.Params.(json.RawMessage); ok {
		return raw
	}
	return nil
}
