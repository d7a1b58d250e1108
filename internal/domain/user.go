package domain

// User is a conversational partner as the directory knows it: a real
// person on the network or one of the built-in bots.
type User struct {
	UIN      UIN
	Nickname string
	Email    string
	Presence Presence
	IsBot    bool
}

// Identity is the locally authenticated user. It is established by the
// identity provider and read-only to the rest of the core.
type Identity struct {
	UIN      UIN
	Nickname string
	Email    string
	Presence Presence
}

// User returns the directory-shaped view of the identity.
func (i Identity) User() User {
	return User{
		UIN:      i.UIN,
		Nickname: i.Nickname,
		Email:    i.Email,
		Presence: i.Presence,
	}
}
