package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/topology"
	"github.com/kilianp07/roamnet/infra/simulator"
)

type OperatorDef struct {
	ID            string   `yaml:"id"`
	LatencyMS     int      `yaml:"latency_ms"`
	DropRate      float64  `yaml:"drop_rate"`
	ChargeKW      float64  `yaml:"charge_kw"`
	AllowedTokens []string `yaml:"allowed_tokens"`
	BlockedTokens []string `yaml:"blocked_tokens"`
}

func (o OperatorDef) ToConfig() simulator.Config {
	return simulator.Config{
		OperatorID:    model.OperatorID(o.ID),
		LatencyMS:     o.LatencyMS,
		DropRate:      o.DropRate,
		ChargeKW:      o.ChargeKW,
		AllowedTokens: o.AllowedTokens,
		BlockedTokens: o.BlockedTokens,
	}
}

type AuthenticatorDef struct {
	ID       string   `yaml:"id"`
	Priority uint32   `yaml:"priority"`
	Allowed  []string `yaml:"allowed_tokens"`
	Blocked  []string `yaml:"blocked_tokens"`
}

func (a AuthenticatorDef) ToConfig() simulator.StaticConfig {
	return simulator.StaticConfig{ID: model.ProviderID(a.ID), AllowedTokens: a.Allowed, BlockedTokens: a.Blocked}
}

// Step is one dispatcher call and the verdict it must produce.
type Step struct {
	Op          string `yaml:"op"`
	Target      string `yaml:"target,omitempty"`
	Operator    string `yaml:"operator,omitempty"`
	Reservation string `yaml:"reservation,omitempty"`
	Session     string `yaml:"session,omitempty"`
	Token       string `yaml:"token,omitempty"`
	TimeoutMS   int    `yaml:"timeout_ms,omitempty"`
	Expect      string `yaml:"expect"`
}

type Expected struct {
	Status       map[string]string `yaml:"status,omitempty"`
	Reservations *int              `yaml:"reservations,omitempty"`
	Sessions     *int              `yaml:"sessions,omitempty"`
	CDRs         *int              `yaml:"cdrs,omitempty"`
}

type Scenario struct {
	Name           string             `yaml:"name"`
	Description    string             `yaml:"description,omitempty"`
	Topology       topology.Seed      `yaml:"topology"`
	Operators      []OperatorDef      `yaml:"operators"`
	Authenticators []AuthenticatorDef `yaml:"authenticators,omitempty"`
	Steps          []Step             `yaml:"steps"`
	Expected       Expected           `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario without name", path)
	}
	return &sc, nil
}

func parseTarget(s string) (model.EntityRef, error) {
	if s == "" {
		return model.EntityRef{}, nil
	}
	return model.ParseEntityRef(s)
}
