package httpprovider

import (
	"context"
	"time"

	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/logger"
	"github.com/kilianp07/roamnet/core/model"
)

const (
	PathAuthorizeStart = "/authorize/start"
	PathAuthorizeStop  = "/authorize/stop"
	PathCDR            = "/cdrs"
)

type authorizeStartBody struct {
	OperatorID model.OperatorID `json:"operator_id,omitempty"`
	Target     string           `json:"target,omitempty"`
	AuthToken  string           `json:"auth_token"`
	ProductID  string           `json:"product_id,omitempty"`
	SessionID  model.SessionID  `json:"session_id,omitempty"`
}

type authorizeStopBody struct {
	OperatorID model.OperatorID `json:"operator_id,omitempty"`
	Target     string           `json:"target,omitempty"`
	AuthToken  string           `json:"auth_token"`
	SessionID  model.SessionID  `json:"session_id"`
}

func target(ref model.EntityRef) string {
	if ref.IsZero() {
		return ""
	}
	return ref.String()
}

// Authenticator is a dispatch.AuthenticationProvider backed by a remote
// token service.
type Authenticator struct{ *Client }

var _ dispatch.AuthenticationProvider = (*Authenticator)(nil)

// NewAuthenticator returns an authenticator for cfg.
func NewAuthenticator(cfg Config, log logger.Logger) (*Authenticator, error) {
	c, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Authenticator{Client: c}, nil
}

// AuthorizeStart implements dispatch.Authorizer.
func (a *Authenticator) AuthorizeStart(ctx context.Context, req dispatch.AuthorizeStartRequest) (model.AuthStartResult, error) {
	start := time.Now()
	var out answer
	err := a.post(ctx, PathAuthorizeStart, authorizeStartBody{
		OperatorID: req.Operator,
		Target:     target(req.Target),
		AuthToken:  req.AuthToken,
		ProductID:  req.ProductID,
		SessionID:  req.SessionID,
	}, &out)
	if err != nil {
		return model.AuthStartResult{}, err
	}
	res := model.AuthStartResult{
		Outcome:      model.Outcome{Code: out.code(), Message: out.Message, Runtime: time.Since(start)},
		SessionID:    out.SessionID,
		ProviderID:   a.ID(),
		AuthorizedBy: out.AuthorizedBy,
	}
	if res.SessionID == "" {
		res.SessionID = req.SessionID
	}
	return res, nil
}

// AuthorizeStop implements dispatch.Authorizer.
func (a *Authenticator) AuthorizeStop(ctx context.Context, req dispatch.AuthorizeStopRequest) (model.AuthStopResult, error) {
	start := time.Now()
	var out answer
	err := a.post(ctx, PathAuthorizeStop, authorizeStopBody{
		OperatorID: req.Operator,
		Target:     target(req.Target),
		AuthToken:  req.AuthToken,
		SessionID:  req.SessionID,
	}, &out)
	if err != nil {
		return model.AuthStopResult{}, err
	}
	return model.AuthStopResult{
		Outcome:    model.Outcome{Code: out.code(), Message: out.Message, Runtime: time.Since(start)},
		SessionID:  req.SessionID,
		ProviderID: a.ID(),
	}, nil
}

// EMobility is a dispatch.EMobilityProvider receiving charge detail records
// over HTTP.
type EMobility struct{ *Client }

var _ dispatch.EMobilityProvider = (*EMobility)(nil)

// NewEMobility returns an e-mobility provider for cfg.
func NewEMobility(cfg Config, log logger.Logger) (*EMobility, error) {
	c, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return &EMobility{Client: c}, nil
}

// SendChargeDetailRecord implements dispatch.CDRReceiver.
func (e *EMobility) SendChargeDetailRecord(ctx context.Context, cdr model.ChargeDetailRecord) (model.SendCDRResult, error) {
	start := time.Now()
	var out answer
	if err := e.post(ctx, PathCDR, cdr, &out); err != nil {
		return model.SendCDRResult{}, err
	}
	return model.SendCDRResult{
		Outcome:    model.Outcome{Code: out.code(), Message: out.Message, Runtime: time.Since(start)},
		SessionID:  cdr.SessionID,
		ProviderID: e.ID(),
	}, nil
}
