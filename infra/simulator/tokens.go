package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/model"
)

type tokenList struct {
	allowed map[string]struct{}
	blocked map[string]struct{}
}

func newTokenList(allowed, blocked []string) tokenList {
	set := func(in []string) map[string]struct{} {
		out := make(map[string]struct{}, len(in))
		for _, s := range in {
			out[s] = struct{}{}
		}
		return out
	}
	return tokenList{allowed: set(allowed), blocked: set(blocked)}
}

// code checks blocked tokens first. An empty allow list admits every
// non-empty token.
func (l tokenList) code(token string) model.ResultCode {
	if _, ok := l.blocked[token]; ok {
		return model.ResultBlocked
	}
	if token == "" {
		return model.ResultNotAuthorized
	}
	if len(l.allowed) == 0 {
		return model.ResultAuthorized
	}
	if _, ok := l.allowed[token]; ok {
		return model.ResultAuthorized
	}
	return model.ResultNotAuthorized
}

// StaticConfig configures a StaticAuthenticator.
type StaticConfig struct {
	ID            model.ProviderID `json:"id"`
	AllowedTokens []string         `json:"allowed_tokens"`
	BlockedTokens []string         `json:"blocked_tokens"`
}

// StaticAuthenticator answers authorization requests from fixed token
// lists.
type StaticAuthenticator struct {
	id     model.ProviderID
	tokens tokenList
}

var _ dispatch.AuthenticationProvider = (*StaticAuthenticator)(nil)

// NewStaticAuthenticator returns an authenticator for cfg.
func NewStaticAuthenticator(cfg StaticConfig) (*StaticAuthenticator, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("static authenticator: id required")
	}
	return &StaticAuthenticator{id: cfg.ID, tokens: newTokenList(cfg.AllowedTokens, cfg.BlockedTokens)}, nil
}

// ID implements dispatch.AuthenticationProvider.
func (a *StaticAuthenticator) ID() model.ProviderID { return a.id }

// AuthorizeStart implements dispatch.Authorizer.
func (a *StaticAuthenticator) AuthorizeStart(ctx context.Context, req dispatch.AuthorizeStartRequest) (model.AuthStartResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AuthStartResult{}, err
	}
	start := time.Now()
	out := model.AuthStartResult{ProviderID: a.id}
	out.Code = a.tokens.code(req.AuthToken)
	if out.Code == model.ResultAuthorized {
		out.SessionID = req.SessionID
		if out.SessionID == "" {
			out.SessionID = model.SessionID(uuid.NewString())
		}
		out.AuthorizedBy = string(a.id)
	}
	out.Runtime = time.Since(start)
	return out, nil
}

// AuthorizeStop implements dispatch.Authorizer.
func (a *StaticAuthenticator) AuthorizeStop(ctx context.Context, req dispatch.AuthorizeStopRequest) (model.AuthStopResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AuthStopResult{}, err
	}
	out := model.AuthStopResult{SessionID: req.SessionID, ProviderID: a.id}
	out.Code = a.tokens.code(req.AuthToken)
	return out, nil
}
