// Package log captures a machine-readable trace of a Jet session.
//
// Protocol logging is separate from operational logging (log/slog). Each
// component that sees traffic (the websocket transport, the JSON-RPC codec
// and the fetch strategies) reports what it saw as an Event to an optional
// Logger:
//
//	transport  text frames, ping/pong/close, connection state
//	wire       decoded requests, responses and notifications
//	fetch      the Status of every dispatched notification
//
// A FileLogger appends events to a .jlog file, a canonical CBOR stream with
// integer keys. Reader, NewFilteredReader and Events stream such a file back,
// and the jet-log command views, filters, exports and summarizes it.
// SlogAdapter mirrors events to a slog.Logger. Combine several sinks with
// NewMultiLogger:
//
//	file, err := log.NewFileLogger("session.jlog")
//	...
//	cfg.ProtocolLogger = log.NewMultiLogger(file, log.NewSlogAdapter(slog.Default()))
package log
