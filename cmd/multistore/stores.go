package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/multistore/internal/http"
	"github.com/fyrsmithlabs/multistore/internal/registry"
	"github.com/fyrsmithlabs/multistore/internal/store"
)

// registerOptions holds --option key=value pairs for stores register.
var registerOptions []string

func init() {
	storesCmd.AddCommand(storesListCmd)
	storesCmd.AddCommand(storesShowCmd)
	storesCmd.AddCommand(storesRegisterCmd)
	storesCmd.AddCommand(storesUnregisterCmd)

	storesRegisterCmd.Flags().StringArrayVarP(&registerOptions, "option", "o", nil, "Store option as key=value (repeatable)")
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage registered stores",
	Long: `Manage the named stores registered on a running server.

Examples:
  # List stores
  multistore stores list

  # Register an in-memory store
  multistore stores register scratch

  # Register a persistent store with a default collection
  multistore stores register events -o path=/var/lib/multistore/events -o collection=log

  # Show a store
  multistore stores show events

  # Unregister a store
  multistore stores unregister scratch`,
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered stores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var resp httpserver.StoreListResponse
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/v1/stores", nil, &resp); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputAsJSON {
			return writeJSON(out, resp)
		}

		if len(resp.Stores) == 0 {
			fmt.Fprintln(out, "No stores registered")
			return nil
		}
		st := newStyles(out)
		for _, name := range resp.Stores {
			marker := " "
			if name == resp.Inspector {
				marker = st.marker.Render("*")
			}
			fmt.Fprintf(out, "%s %s\n", marker, name)
		}
		return nil
	},
}

var storesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a registered store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap store.Snapshot
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/v1/stores/"+url.PathEscape(args[0]), nil, &snap); err != nil {
			return err
		}
		return printSnapshot(cmd.OutOrStdout(), snap)
	},
}

var storesRegisterCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := registry.ValidateName(name); err != nil {
			return err
		}

		options, err := parseOptions(registerOptions)
		if err != nil {
			return err
		}

		var snap store.Snapshot
		req := httpserver.RegisterStoreRequest{Name: name, Options: options}
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/v1/stores", req, &snap); err != nil {
			return err
		}

		if outputAsJSON {
			return writeJSON(cmd.OutOrStdout(), snap)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Store %s registered\n", snap.Name)
		return nil
	},
}

var storesUnregisterCmd = &cobra.Command{
	Use:   "unregister <name>",
	Short: "Unregister a store",
	Long: `Unregister a store. A store that was built is shut down. If the
inspector was looking at it, the inspector moves to the default store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodDelete, "/api/v1/stores/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Store %s unregistered\n", args[0])
		return nil
	},
}

// parseOptions turns key=value pairs into store options. Values stay
// strings; the store parses the ones it understands.
func parseOptions(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q: expected key=value", pair)
		}
		options[key] = value
	}
	return options, nil
}

func printSnapshot(out io.Writer, snap store.Snapshot) error {
	if outputAsJSON {
		return writeJSON(out, snap)
	}

	st := newStyles(out)
	const width = len("Default collection:")
	st.field(out, "Name", width, snap.Name)
	st.field(out, "Persistent", width, snap.Persistent)
	st.field(out, "Default collection", width, snap.DefaultCollection)
	st.field(out, "Documents", width, snap.Documents)
	if snap.Closed {
		st.field(out, "Closed", width, st.warning.Render("true"))
	}

	if len(snap.Options) > 0 {
		fmt.Fprintln(out, "\n"+st.section.Render("Options:"))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, k := range sortedKeys(snap.Options) {
			fmt.Fprintf(w, "  %s\t%v\n", k, snap.Options[k])
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(snap.Collections) > 0 {
		fmt.Fprintln(out, "\n"+st.section.Render("Collections:"))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tDOCUMENTS")
		for _, c := range snap.Collections {
			fmt.Fprintf(w, "  %s\t%d\n", c.Name, c.Documents)
		}
		return w.Flush()
	}
	return nil
}
