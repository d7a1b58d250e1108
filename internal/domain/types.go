package domain

type UIN string
type MessageID string

type Presence string

const (
	PresenceOnline    Presence = "Online"
	PresenceAway      Presence = "Away"
	PresenceDND       Presence = "DND"
	PresenceOffline   Presence = "Offline"
	PresenceInvisible Presence = "Invisible"
)

// ParsePresence maps free-form status strings to a known presence,
// defaulting to Offline.
func ParsePresence(s string) Presence {
	switch Presence(s) {
	case PresenceOnline, PresenceAway, PresenceDND, PresenceInvisible:
		return Presence(s)
	default:
		return PresenceOffline
	}
}
