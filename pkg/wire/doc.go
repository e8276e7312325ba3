// Package wire defines the JSON-RPC message shapes of the Jet protocol.
//
// Jet peers exchange JSON-RPC 2.0 style messages over a message-oriented
// transport. A single frame carries either one message or a JSON array of
// messages (batch).
//
// # Message Kinds
//
//   - Request: has "method" and "id" (peer to daemon: fetch, unfetch, ...)
//   - Response: has "id" and either "result" or "error"
//   - Notification: has "method" and no "id"
//
// # Fetch Notifications
//
// Lifecycle notifications of a fetch carry the registration in "method"
// and the event in "params":
//
//	{"method": 7, "params": {"event": "add", "path": "a/b", "value": 42}}
//
// The fetch-all registration uses the method name "fetch_all" instead of
// an id. RoutingKey maps both forms to an integer key.
//
// # Absent vs Null
//
// Params decoding keeps raw JSON so that a missing "params" member, an
// explicit null and an empty object can be told apart by the dispatcher.
package wire
