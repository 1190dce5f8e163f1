package google

import (
	"context"
	"sync/atomic"

	"github.com/custodia-labs/delegate/internal/core/domain"
	"github.com/custodia-labs/delegate/internal/core/ports/driven"
)

// scriptedProvider returns the scripted errors in order, then the token.
type scriptedProvider struct {
	token string
	errs  []error
	calls atomic.Int32
}

var _ driven.TokenProvider = (*scriptedProvider)(nil)

func (p *scriptedProvider) GetToken(context.Context) (string, error) {
	n := int(p.calls.Add(1)) - 1
	if n < len(p.errs) {
		return "", p.errs[n]
	}
	return p.token, nil
}

func (p *scriptedProvider) Service() domain.ServiceIdentifier {
	return domain.ServiceCalendar
}

func transient() error {
	return domain.TransientProviderError("refresh", domain.ServiceCalendar, "timeout", nil)
}
