package wire

import "encoding/json"

// EventKind is the lifecycle event of a fetched path.
type EventKind string

const (
	// EventAdd reports a path that appeared.
	EventAdd EventKind = "add"
	// EventChange reports a new value of a known path.
	EventChange EventKind = "change"
	// EventRemove reports a path that disappeared.
	EventRemove EventKind = "remove"
)

// Lifecycle reports whether k is one of add, change and remove.
func (k EventKind) Lifecycle() bool {
	switch k {
	case EventAdd, EventChange, EventRemove:
		return true
	}
	return false
}

// FetchEvent is the decoded params of a fetch notification.
type FetchEvent struct {
	Event EventKind       `json:"event"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`

	// Params holds the raw params exactly as received.
	Params json.RawMessage `json:"-"`
}

// ParseFetchEvent decodes the params of a fetch notification.
//
// It returns StatusParamsNotSpecified when params are absent or null, or
// when an add, change or remove carries no path, and
// StatusFetchEventNotSpecified when params carry no event member or are not
// an object. Other event kinds may omit the path.
func ParseFetchEvent(params json.RawMessage) (FetchEvent, Status) {
	if isNull(params) {
		return FetchEvent{}, StatusParamsNotSpecified
	}

	var raw struct {
		Event *string         `json:"event"`
		Path  *string         `json:"path"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(params, &raw); err != nil {
		return FetchEvent{Params: params}, StatusFetchEventNotSpecified
	}
	if raw.Event == nil {
		return FetchEvent{Params: params}, StatusFetchEventNotSpecified
	}
	kind := EventKind(*raw.Event)
	if raw.Path == nil && kind.Lifecycle() {
		return FetchEvent{Event: kind, Params: params}, StatusParamsNotSpecified
	}

	var path string
	if raw.Path != nil {
		path = *raw.Path
	}
	return FetchEvent{
		Event:  kind,
		Path:   path,
		Value:  raw.Value,
		Params: params,
	}, StatusSuccess
}
