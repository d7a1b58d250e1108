package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dsiqueira/retroicq/internal/domain"
)

const minUINLength = 3

// AnonymousProvider issues identities the way the retro network does:
// any UIN of at least three characters is accepted, the password is not
// checked, and signing in claims (or refreshes) the profile document.
type AnonymousProvider struct {
	store domain.RemoteStore
}

var _ domain.IdentityProvider = (*AnonymousProvider)(nil)

func NewAnonymousProvider(store domain.RemoteStore) *AnonymousProvider {
	return &AnonymousProvider{store: store}
}

func (p *AnonymousProvider) SignIn(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	return p.establish(ctx, creds)
}

// SignUp is the same anonymous claim; on this network registering a UIN
// and logging into it are one act.
func (p *AnonymousProvider) SignUp(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	return p.establish(ctx, creds)
}

func (p *AnonymousProvider) establish(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	uin := strings.TrimSpace(creds.UIN)
	if len(uin) < minUINLength {
		return nil, &domain.AuthError{
			Reason: domain.AuthReasonInvalidUIN,
			Err:    fmt.Errorf("uin must be at least %d characters", minUINLength),
		}
	}

	nickname := strings.TrimSpace(creds.Nickname)
	if nickname == "" {
		if uin == "111111" {
			nickname = "Admin"
		} else {
			nickname = "User_" + uin
		}
	}

	ident := &domain.Identity{
		UIN:      domain.UIN(uin),
		Nickname: nickname,
		Email:    "user@web.net",
		Presence: domain.PresenceOnline,
	}

	if err := p.store.UpsertProfile(ctx, ident.User()); err != nil {
		return nil, &domain.AuthError{Reason: domain.AuthReasonUnavailable, Err: err}
	}

	return ident, nil
}
