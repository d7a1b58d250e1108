package responder

import (
	"context"
	"fmt"

	"github.com/dsiqueira/retroicq/internal/domain"
)

// MockResponder produces canned replies for local mode, no API key
// needed.
type MockResponder struct{}

var _ domain.Responder = (*MockResponder)(nil)

func NewMockResponder() *MockResponder {
	return &MockResponder{}
}

func (m *MockResponder) Respond(ctx context.Context, text string, askerUIN domain.UIN, history []domain.Message) (string, error) {
	return fmt.Sprintf("You said %q. Cool stuff, netizen! (offline mode, msg #%d)", text, len(history)+1), nil
}
