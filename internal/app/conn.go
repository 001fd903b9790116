package app

// Role is what a connection is allowed to act as within its room.
type Role string

const (
	RoleNone   Role = ""
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// ConnContext is the ephemeral identity bound to one connection: who it is,
// which room it joined, and as what. The transport creates one per connection
// and discards it on disconnect; the coordinator fills in the bindings as
// join and registration events are accepted. Events for one connection are
// dispatched sequentially by its read loop, so no locking is needed here.
type ConnContext struct {
	ConnID     string
	RemoteAddr string

	Role     Role
	RoomID   string
	PlayerID string
}
