package chat

import "errors"

// Domain-level errors for the realtime chat core.
//
// The consumer layer sorts these into two buckets: semantic errors are logged
// and acknowledged (never retried), while anything wrapped as a persistence
// error by the use cases signals redelivery.
var (
	ErrNotMember     = errors.New("chat: member does not belong to the room")
	ErrUnknownRoom   = errors.New("chat: room does not exist")
	ErrRoomKind      = errors.New("chat: room kind does not match the connection kind")
	ErrNotAuthor     = errors.New("chat: only the author may delete a message")
	ErrEmptyContent  = errors.New("chat: message content is blank")
	ErrMissingKey    = errors.New("chat: client message id is required")
	ErrMissingTarget = errors.New("chat: delete target id is required")
	ErrMissingTime   = errors.New("chat: read timestamp is required")
)
