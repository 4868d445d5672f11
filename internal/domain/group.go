package domain

// Group is stored at groups/{id}. Participants map encoded user keys to a
// membership flag; message push keys and the typing field share the same node.
type Group struct {
	ID           string          `json:"-"`
	GroupName    string          `json:"groupName"`
	Participants map[string]bool `json:"participants"`
}

// HasParticipant reports whether the encoded user key is a member.
func (g Group) HasParticipant(userID string) bool {
	return g.Participants[userID]
}
