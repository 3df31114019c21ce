package scenarios

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/registry"
	"github.com/kilianp07/roamnet/core/topology"
	"github.com/kilianp07/roamnet/infra/logger"
	"github.com/kilianp07/roamnet/infra/simulator"
	"github.com/kilianp07/roamnet/internal/eventbus"
)

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	topo := topology.New("qa", topology.Options{})
	if err := sc.Topology.Apply(topo, time.Unix(0, 0)); err != nil {
		t.Fatalf("topology: %v", err)
	}

	reg := dispatch.NewProviderRegistry(registry.PolicyReject)
	for _, def := range sc.Operators {
		op, err := simulator.New(def.ToConfig(), topo, logger.NopLogger{})
		if err != nil {
			t.Fatalf("operator %s: %v", def.ID, err)
		}
		op.SetSeed(1)
		if err := reg.RegisterOperator(op); err != nil {
			t.Fatalf("register %s: %v", def.ID, err)
		}
	}
	for _, def := range sc.Authenticators {
		a, err := simulator.NewStaticAuthenticator(def.ToConfig())
		if err != nil {
			t.Fatalf("authenticator %s: %v", def.ID, err)
		}
		if def.Priority > 0 {
			_, err = reg.RegisterAuthenticationProviderWithPriority(a, def.Priority)
		} else {
			_, err = reg.RegisterAuthenticationProvider(a)
		}
		if err != nil {
			t.Fatalf("register %s: %v", def.ID, err)
		}
	}

	bus := eventbus.New()
	defer bus.Close()
	net := dispatch.New("qa", reg, dispatch.Options{
		Logger:         logger.NopLogger{},
		Bus:            bus,
		Topology:       topo,
		DefaultTimeout: 200 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = net.Run(ctx)
		close(done)
	}()

	for i, st := range sc.Steps {
		code, err := runStep(ctx, net, st)
		if err != nil {
			t.Fatalf("step %d (%s): %v", i, st.Op, err)
		}
		if code.String() != st.Expect {
			t.Errorf("step %d (%s %s): expected %s, got %s", i, st.Op, st.Target, st.Expect, code)
		}
	}

	if sc.Expected.CDRs != nil {
		want := *sc.Expected.CDRs
		deadline := time.Now().Add(2 * time.Second)
		for {
			got, err := net.CDRs().Len(ctx)
			if err != nil {
				t.Fatalf("cdr count: %v", err)
			}
			if got == want {
				break
			}
			if time.Now().After(deadline) {
				t.Errorf("expected %d cdrs, got %d", want, got)
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	cancel()
	<-done

	for ref, want := range sc.Expected.Status {
		r, err := model.ParseEntityRef(ref)
		if err != nil {
			t.Fatalf("expected status of %q: %v", ref, err)
		}
		got, _ := topo.Status(r)
		if got.String() != want {
			t.Errorf("status of %s: expected %s, got %s", ref, want, got)
		}
	}
	if sc.Expected.Reservations != nil && net.Reservations().Len() != *sc.Expected.Reservations {
		t.Errorf("expected %d reservations, got %d", *sc.Expected.Reservations, net.Reservations().Len())
	}
	if sc.Expected.Sessions != nil && net.Sessions().Len() != *sc.Expected.Sessions {
		t.Errorf("expected %d sessions, got %d", *sc.Expected.Sessions, net.Sessions().Len())
	}
}

func runStep(ctx context.Context, net *dispatch.RoamingNetwork, st Step) (model.ResultCode, error) {
	target, err := parseTarget(st.Target)
	if err != nil {
		return 0, err
	}
	timeout := time.Duration(st.TimeoutMS) * time.Millisecond
	switch st.Op {
	case "reserve":
		res, err := net.Reserve(ctx, dispatch.ReserveRequest{Target: target, ReservationID: model.ReservationID(st.Reservation), Timeout: timeout})
		return res.Code, err
	case "cancel":
		res, err := net.CancelReservation(ctx, dispatch.CancelReservationRequest{ReservationID: model.ReservationID(st.Reservation), Target: target, Timeout: timeout})
		return res.Code, err
	case "start":
		res, err := net.RemoteStart(ctx, dispatch.RemoteStartRequest{Target: target, SessionID: model.SessionID(st.Session), ReservationID: model.ReservationID(st.Reservation), Timeout: timeout})
		return res.Code, err
	case "stop":
		res, err := net.RemoteStop(ctx, dispatch.RemoteStopRequest{SessionID: model.SessionID(st.Session), Target: target, Timeout: timeout})
		return res.Code, err
	case "authorize_start":
		res, err := net.AuthorizeStart(ctx, dispatch.AuthorizeStartRequest{Operator: model.OperatorID(st.Operator), Target: target, AuthToken: st.Token, SessionID: model.SessionID(st.Session), Timeout: timeout})
		return res.Code, err
	case "authorize_stop":
		res, err := net.AuthorizeStop(ctx, dispatch.AuthorizeStopRequest{Operator: model.OperatorID(st.Operator), Target: target, SessionID: model.SessionID(st.Session), AuthToken: st.Token, Timeout: timeout})
		return res.Code, err
	}
	return 0, fmt.Errorf("unknown operation %q", st.Op)
}
