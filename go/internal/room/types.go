package room

// Player is a connection seated in a room
type Player struct {
	ConnID      string `json:"id"`
	DisplayName string `json:"name"`
}

// Room is a named, capacity-bounded group of players sharing one game session.
// Players are kept in join order; HostID always names Players[0].
type Room struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Players    []Player `json:"players"`
	MaxPlayers int      `json:"max"`
	HostID     string   `json:"hostId"`
}

// Summary is the public projection used for room browsing
type Summary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PlayerCount int      `json:"playerCount"`
	Max         int      `json:"max"`
	Players     []Player `json:"players"`
}

// HasMember reports whether connID is seated in the room
func (r Room) HasMember(connID string) bool {
	return r.indexOf(connID) >= 0
}

func (r Room) indexOf(connID string) int {
	for i, p := range r.Players {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

func (r Room) clone() Room {
	out := r
	out.Players = make([]Player, len(r.Players))
	copy(out.Players, r.Players)
	return out
}

func (r Room) summary() Summary {
	players := make([]Player, len(r.Players))
	copy(players, r.Players)
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		PlayerCount: len(r.Players),
		Max:         r.MaxPlayers,
		Players:     players,
	}
}
