package domain

// Message is one immutable chat message. ID is globally unique per
// origin (remote-assigned document id, or locally generated for bot
// exchanges) and is the deduplication key inside a session.
type Message struct {
	ID          MessageID
	SenderUIN   UIN
	ReceiverUIN UIN
	Text        string
	SentAt      int64 // unix millis
	Read        bool
}

// Involves reports whether the message is relevant to the given user.
func (m Message) Involves(u UIN) bool {
	return m.SenderUIN == u || m.ReceiverUIN == u
}

// PartnerOf derives the other participant relative to the local user.
func (m Message) PartnerOf(local UIN) UIN {
	if m.SenderUIN == local {
		return m.ReceiverUIN
	}
	return m.SenderUIN
}

// InboundTo reports whether the local user is the receiver (as opposed
// to an echo of the local user's own send).
func (m Message) InboundTo(local UIN) bool {
	return m.ReceiverUIN == local
}
