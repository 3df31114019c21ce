package plugins

import (
	"github.com/kilianp07/roamnet/core/dispatch"
	"github.com/kilianp07/roamnet/core/factory"
	"github.com/kilianp07/roamnet/infra/httpprovider"
	"github.com/kilianp07/roamnet/infra/simulator"
)

func init() {
	RegisterOperator("simulator", func(conf map[string]any, deps Deps) (dispatch.Operator, error) {
		var c simulator.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return simulator.New(c, deps.Topology, deps.logger("simulator"))
	})

	RegisterAuthenticator("static", func(conf map[string]any, _ Deps) (dispatch.AuthenticationProvider, error) {
		var c simulator.StaticConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return simulator.NewStaticAuthenticator(c)
	})
	RegisterAuthenticator("http", func(conf map[string]any, deps Deps) (dispatch.AuthenticationProvider, error) {
		var c httpprovider.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return httpprovider.NewAuthenticator(c, deps.logger("httpprovider"))
	})

	RegisterEMobility("http", func(conf map[string]any, deps Deps) (dispatch.EMobilityProvider, error) {
		var c httpprovider.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return httpprovider.NewEMobility(c, deps.logger("httpprovider"))
	})
}
