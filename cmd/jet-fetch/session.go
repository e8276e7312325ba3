package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jet-ipc/jet-go/cmd/jet-fetch/interactive"
	"github.com/jet-ipc/jet-go/pkg/config"
	"github.com/jet-ipc/jet-go/pkg/fetch"
	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/peer"
	"github.com/jet-ipc/jet-go/pkg/transport"
)

// errDisconnected is returned by the shell commands between sessions.
var errDisconnected = errors.New("not connected to the daemon")

// livePeer forwards to the peer of the current session. The shell outlives
// sessions, so it holds this instead of a peer.
type livePeer struct {
	strategy string

	mu sync.RWMutex
	p  *peer.Peer
}

func (l *livePeer) set(p *peer.Peer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.p = p
}

func (l *livePeer) current() *peer.Peer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p
}

func (l *livePeer) Fetch(m *matcher.Matcher, onEvent fetch.EventFunc, onResponse fetch.ResponseFunc) (fetch.ID, error) {
	p := l.current()
	if p == nil {
		return 0, errDisconnected
	}
	return p.Fetch(m, onEvent, onResponse)
}

func (l *livePeer) Unfetch(id fetch.ID, onResponse fetch.ResponseFunc) error {
	p := l.current()
	if p == nil {
		return errDisconnected
	}
	return p.Unfetch(id, onResponse)
}

func (l *livePeer) Subscriptions() []fetch.ID {
	if p := l.current(); p != nil {
		return p.Subscriptions()
	}
	return nil
}

func (l *livePeer) CachedPaths() []string {
	if p := l.current(); p != nil {
		return p.CachedPaths()
	}
	return nil
}

func (l *livePeer) Strategy() string {
	return l.strategy
}

// session holds everything a single connection attempt needs.
type session struct {
	cfg         *config.Config
	out         io.Writer
	logger      *slog.Logger
	protoLogger log.Logger
	live        *livePeer
	shell       *interactive.Shell
}

// run dials the daemon, subscribes and blocks until the connection ends or
// ctx is cancelled. It is a connection.SessionFunc.
func (s *session) run(ctx context.Context, connected func()) error {
	tc := s.cfg.TransportConfig()
	tc.Logger = s.logger
	tc.ProtocolLogger = s.protoLogger

	s.logger.Info("connecting", "url", tc.URL, "strategy", s.cfg.Fetch.Strategy)
	client, err := transport.Dial(ctx, tc)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()
	s.logger.Info("connected", "url", client.URL(), "conn_id", client.ConnectionID())

	p, err := peer.Attach(client, peer.Config{
		Strategy:       s.cfg.Fetch.Strategy,
		RequestTimeout: s.cfg.Daemon.RequestTimeout,
		Logger:         s.logger,
		ProtocolLogger: s.protoLogger,
	})
	if err != nil {
		return fmt.Errorf("set up fetching: %w", err)
	}

	if s.shell != nil {
		s.shell.Reset()
	}
	failed := subscribe(p, s.cfg.Subscriptions, s.out, s.logger, s.shell)
	if failed > 0 {
		s.logger.Warn("some subscriptions failed", "count", failed)
	}

	s.live.set(p)
	defer s.live.set(nil)
	connected()

	select {
	case <-ctx.Done():
		if client.State().Open() {
			p.Close()
		}
		return nil
	case <-client.Done():
		err := client.Wait()
		if err == nil {
			err = transport.ErrNotConnected
		}
		s.logger.Error("connection lost", "error", err)
		return err
	}
}
