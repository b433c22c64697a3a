package models

// Participant identifies one side of a room.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"` // "admin" | "brand" | "influencer"
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Room is a two-participant conversation container.
type Room struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
}

// Counterpart returns the participant that is not selfID, or nil when the
// room has no other participant (deleted account, malformed payload).
func (r *Room) Counterpart(selfID string) *Participant {
	for i := range r.Participants {
		if r.Participants[i].ID != selfID {
			return &r.Participants[i]
		}
	}
	return nil
}
