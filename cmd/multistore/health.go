package main

import (
	"net/http"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/multistore/internal/http"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var status httpserver.StatusResponse
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/v1/status", nil, &status); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputAsJSON {
			return writeJSON(out, status)
		}
		st := newStyles(out)
		const width = len("Server Status:")
		st.field(out, "Server Status", width, st.marker.Render(status.Status))
		st.field(out, "Server URL", width, serverURL)
		st.field(out, "Version", width, status.Version)
		st.field(out, "Stores", width, status.Stores)
		st.field(out, "Inspector", width, status.Inspector)
		return nil
	},
}
