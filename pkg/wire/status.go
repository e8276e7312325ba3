package wire

// Status is the outcome of dispatching one inbound fetch notification.
// Negative values are protocol-state violations; the local fetch state is
// left unchanged when one is returned.
type Status int8

const (
	// StatusSuccess indicates the notification was applied.
	StatusSuccess Status = 0

	// StatusChangeWithoutAdd indicates a change for a path never added.
	StatusChangeWithoutAdd Status = -1

	// StatusRemoveWithoutAdd indicates a remove for a path never added.
	StatusRemoveWithoutAdd Status = -2

	// StatusMultipleAdd indicates a second add for an already added path.
	StatusMultipleAdd Status = -3

	// StatusParamsNotSpecified indicates the notification has no params.
	StatusParamsNotSpecified Status = -4

	// StatusFetchEventNotSpecified indicates the params have no event.
	StatusFetchEventNotSpecified Status = -5
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusChangeWithoutAdd:
		return "CHANGE_WITHOUT_ADD"
	case StatusRemoveWithoutAdd:
		return "REMOVE_WITHOUT_ADD"
	case StatusMultipleAdd:
		return "MULTIPLE_ADD"
	case StatusParamsNotSpecified:
		return "PARAMS_NOT_SPECIFIED"
	case StatusFetchEventNotSpecified:
		return "FETCH_EVENT_NOT_SPECIFIED"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates a protocol violation.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
