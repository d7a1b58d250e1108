package domain

// ChatSession is the accumulated conversation with one partner.
// Messages are kept sorted ascending by SentAt. Sessions are never
// destroyed, only closed; reopening reuses the history.
type ChatSession struct {
	PartnerUIN UIN
	Messages   []Message
	Draft      string
	Open       bool
	Minimized  bool
}

// Clone returns a deep copy so read-model consumers cannot mutate
// tracker state.
func (s *ChatSession) Clone() *ChatSession {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
