package dispatch

import (
	"context"

	"github.com/kilianp07/roamnet/core/events"
	"github.com/kilianp07/roamnet/core/model"
)

type authCandidate struct {
	owner model.Owner
	auth  Authorizer
}

// authChain lists authentication providers, then roaming providers, each in
// ascending priority, leaving out skip.
func (n *RoamingNetwork) authChain(skip model.Owner) []authCandidate {
	auths := n.registry.AuthenticationProviders()
	roaming := n.registry.RoamingProviders()
	out := make([]authCandidate, 0, len(auths)+len(roaming))
	for _, e := range auths {
		if o := model.AuthenticatorOwner(e.Value.ID()); o != skip {
			out = append(out, authCandidate{owner: o, auth: e.Value})
		}
	}
	for _, e := range roaming {
		if o := model.ProviderOwner(e.Value.ID()); o != skip {
			out = append(out, authCandidate{owner: o, auth: e.Value})
		}
	}
	return out
}

// AuthorizeStart asks authentication providers, then roaming providers, in
// priority order and stops at the first Authorized or Blocked verdict.
// Every other verdict, timeouts included, moves on to the next candidate.
// An authorized session id is recorded with the authorizing provider as
// owner.
func (n *RoamingNetwork) AuthorizeStart(ctx context.Context, req AuthorizeStartRequest) (model.AuthStartResult, error) {
	if req.AuthToken == "" {
		return model.AuthStartResult{}, invalid("auth token is required")
	}
	if !req.Target.IsZero() {
		if err := validateTarget(req.Target); err != nil {
			return model.AuthStartResult{}, err
		}
		if req.Operator == "" {
			req.Operator = req.Target.Operator
		}
	}
	if req.Operator == "" {
		return model.AuthStartResult{}, invalid("operator id is required")
	}
	c := n.begin(events.OpAuthorizeStart, events.OperationEvent{
		Operator:  req.Operator,
		Target:    req.Target,
		SessionID: req.SessionID,
	})
	res, by := n.authorizeStart(ctx, c, req)
	res.Outcome = c.finish(res.Outcome, by)
	return res, nil
}

func (n *RoamingNetwork) authorizeStart(ctx context.Context, c *call, req AuthorizeStartRequest) (model.AuthStartResult, model.Owner) {
	for _, cand := range n.authChain(model.Owner{}) {
		if o, stop := aborted(ctx); stop {
			return model.AuthStartResult{Outcome: o}, model.Owner{}
		}
		a := cand.auth
		res := attempt(ctx, c, ownerKind(cand.owner), req.Timeout, func(ctx context.Context) (model.AuthStartResult, error) {
			return a.AuthorizeStart(ctx, req)
		})
		switch res.Code {
		case model.ResultAuthorized:
			if res.ProviderID == "" {
				res.ProviderID = model.ProviderID(cand.owner.ID)
			}
			if res.SessionID == "" {
				res.SessionID = req.SessionID
			}
			res.AuthorizedBy = cand.owner.String()
			if res.SessionID != "" {
				n.putSession(model.Session{
					ID:        res.SessionID,
					Target:    req.Target,
					Owner:     cand.owner,
					StartedAt: n.clock(),
				})
			}
			return res, cand.owner
		case model.ResultBlocked:
			if res.ProviderID == "" {
				res.ProviderID = model.ProviderID(cand.owner.ID)
			}
			return res, cand.owner
		}
	}
	return model.AuthStartResult{Outcome: model.Outcome{Code: model.ResultError, Message: noPositiveAuth}}, model.Owner{}
}

// AuthorizeStop asks the recorded session owner first, then
// authentication providers and roaming providers in priority order, and
// stops at the first Authorized verdict.
func (n *RoamingNetwork) AuthorizeStop(ctx context.Context, req AuthorizeStopRequest) (model.AuthStopResult, error) {
	if req.SessionID == "" {
		return model.AuthStopResult{}, invalid("session id is required")
	}
	if req.AuthToken == "" {
		return model.AuthStopResult{}, invalid("auth token is required")
	}
	if !req.Target.IsZero() {
		if err := validateTarget(req.Target); err != nil {
			return model.AuthStopResult{}, err
		}
		if req.Operator == "" {
			req.Operator = req.Target.Operator
		}
	}
	c := n.begin(events.OpAuthorizeStop, events.OperationEvent{
		Operator:  req.Operator,
		Target:    req.Target,
		SessionID: req.SessionID,
	})
	res, by := n.authorizeStop(ctx, c, req)
	if res.SessionID == "" {
		res.SessionID = req.SessionID
	}
	res.Outcome = c.finish(res.Outcome, by)
	return res, nil
}

func (n *RoamingNetwork) authorizeStop(ctx context.Context, c *call, req AuthorizeStopRequest) (model.AuthStopResult, model.Owner) {
	var chain []authCandidate
	owner, tracked := n.sessions.Owner(req.SessionID)
	if tracked {
		if a, ok := n.registry.authorizer(owner); ok {
			chain = append(chain, authCandidate{owner: owner, auth: a})
		}
	}
	chain = append(chain, n.authChain(owner)...)
	for _, cand := range chain {
		if o, stop := aborted(ctx); stop {
			return model.AuthStopResult{Outcome: o}, model.Owner{}
		}
		a := cand.auth
		res := attempt(ctx, c, ownerKind(cand.owner), req.Timeout, func(ctx context.Context) (model.AuthStopResult, error) {
			return a.AuthorizeStop(ctx, req)
		})
		if res.Code == model.ResultAuthorized {
			if res.ProviderID == "" && cand.owner.Kind != model.OwnerOperator {
				res.ProviderID = model.ProviderID(cand.owner.ID)
			}
			return res, cand.owner
		}
	}
	return model.AuthStopResult{Outcome: model.Outcome{Code: model.ResultError, Message: noPositiveAuth}}, model.Owner{}
}
