package main

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/multistore/internal/http"
	"github.com/fyrsmithlabs/multistore/internal/store"
)

func init() {
	inspectorCmd.AddCommand(inspectorShowCmd)
	inspectorCmd.AddCommand(inspectorSwitchCmd)
}

var inspectorCmd = &cobra.Command{
	Use:   "inspector",
	Short: "Show or switch the debug inspector",
	Long: `The debug inspector looks at one store at a time.

Examples:
  # Show the inspected store
  multistore inspector show

  # Inspect a named store
  multistore inspector switch events

  # Go back to the default store
  multistore inspector switch`,
}

var inspectorShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the inspected store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var snap store.Snapshot
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/v1/inspector", nil, &snap); err != nil {
			return err
		}
		return printSnapshot(cmd.OutOrStdout(), snap)
	},
}

var inspectorSwitchCmd = &cobra.Command{
	Use:   "switch [name]",
	Short: "Point the inspector at a store",
	Long:  `Point the inspector at a named store, or at the default store when no name is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req httpserver.SwitchInspectorRequest
		if len(args) == 1 {
			req.Name = args[0]
		}

		var snap store.Snapshot
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPut, "/api/v1/inspector", req, &snap); err != nil {
			return err
		}

		if outputAsJSON {
			return writeJSON(cmd.OutOrStdout(), snap)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inspector now on %s\n", snap.Name)
		return nil
	},
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
