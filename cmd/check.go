package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/roamnet/app/plugins"
	"github.com/kilianp07/roamnet/config"
	coremetrics "github.com/kilianp07/roamnet/core/metrics"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and list the available module types",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "network %s: %d operators, %d authenticators, %d e-mobility providers configured\n",
		cfg.Network.ID, len(cfg.Backends.Operators), len(cfg.Backends.Authenticators), len(cfg.Backends.EMobility))
	fmt.Fprintf(out, "operator types: %v\n", keys(plugins.Operators))
	fmt.Fprintf(out, "authenticator types: %v\n", keys(plugins.Authenticators))
	fmt.Fprintf(out, "e-mobility types: %v\n", keys(plugins.EMobility))
	fmt.Fprintf(out, "metrics sink types: %v\n", coremetrics.MetricsSinkTypes())
	return nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
