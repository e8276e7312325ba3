package wire

import "encoding/json"

// Jet method names used by the fetch layer.
const (
	// MethodFetch registers interest in path lifecycle events.
	MethodFetch = "fetch"

	// MethodUnfetch removes a fetch registration.
	MethodUnfetch = "unfetch"

	// MethodFetchAll is the method of notifications for the fetch-all registration.
	MethodFetchAll = "fetch_all"
)

// FetchAllID is the routing key of fetch-all notifications.
const FetchAllID = -1

// RoutingKey returns the fetch registration a notification belongs to.
// The string method "fetch_all" maps to FetchAllID and an integer method
// maps to itself. Any other method is not a fetch notification.
func RoutingKey(n *Notification) (int, bool) {
	if n == nil || isNull(n.Method) {
		return 0, false
	}

	var name string
	if err := json.Unmarshal(n.Method, &name); err == nil {
		if name == MethodFetchAll {
			return FetchAllID, true
		}
		return 0, false
	}

	id, err := parseInt(n.Method)
	if err != nil {
		return 0, false
	}
	return id, true
}
