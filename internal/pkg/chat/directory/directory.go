// Package directory exposes the narrow collaborator interfaces the chat core
// consumes. Room, membership and profile management are owned elsewhere; only
// these lookups cross the boundary.
package directory

import "context"

// Profile carries the display fields resolved onto outbound frames.
type Profile struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Membership answers room-scoped authorization questions.
type Membership interface {
	// IsMember reports whether the member belongs to the room. An unknown room
	// yields chat.ErrUnknownRoom.
	IsMember(ctx context.Context, roomID, memberID string) (bool, error)

	// IsBotRoom reports whether the room is flagged AI-only. An unknown room
	// yields chat.ErrUnknownRoom.
	IsBotRoom(ctx context.Context, roomID string) (bool, error)
}

// Profiles resolves display fields for a set of members in bulk.
type Profiles interface {
	Lookup(ctx context.Context, memberIDs []string) (map[string]Profile, error)
}
