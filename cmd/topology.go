package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/roamnet/core/model"
	"github.com/kilianp07/roamnet/core/topology"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Topology related commands",
}

var topologyLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Print the seeded hierarchy with aggregated statuses",
	RunE:  runTopologyLs,
}

func init() {
	topologyCmd.AddCommand(topologyLsCmd)
	rootCmd.AddCommand(topologyCmd)
}

func runTopologyLs(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	return printTree(cmd.OutOrStdout(), svc.Topology, svc.Topology.Root(), 0)
}

func printTree(w io.Writer, n *topology.Network, ref model.EntityRef, depth int) error {
	node, ok := n.Get(ref)
	if !ok {
		return fmt.Errorf("entity %s not found", ref)
	}
	st, _ := n.Status(ref)
	admin, _ := n.AdminStatus(ref)
	line := fmt.Sprintf("%s%s %s [%s/%s]", strings.Repeat("  ", depth), ref.Tier, ref, st, admin)
	if node.Name != "" {
		line += " " + node.Name
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range n.Children(ref) {
		if err := printTree(w, n, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
