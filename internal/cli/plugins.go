package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/oxbow/internal/plugin"
)

var pluginsJSON bool

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List discovered plugins",
	Long:  `List every plugin directory under the configured plugin roots, in load order.`,
	RunE:  runPlugins,
}

func init() {
	pluginsCmd.Flags().BoolVar(&pluginsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(pluginsCmd)
}

// pluginEntry describes a discovered plugin for display.
type pluginEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Root     string `json:"root"`
	Runnable bool   `json:"runnable"`
	Error    string `json:"error,omitempty"`
}

func runPlugins(cmd *cobra.Command, args []string) error {
	_, cfg, _, err := setup()
	if err != nil {
		return err
	}

	var entries []pluginEntry
	for _, p := range plugin.Discover(plugin.RootPaths(cfg)) {
		entry := pluginEntry{Name: p.Name(), Root: p.Root(), Runnable: p.Runnable()}
		if m := p.Manifest(); m != nil {
			entry.Version = m.Version
			if err := m.CheckCompatible(buildVersion); err != nil {
				entry.Error = err.Error()
			}
		}
		if err := p.Err(); err != nil {
			entry.Error = err.Error()
		}
		entries = append(entries, entry)
	}

	if pluginsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plugins found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tRUNNABLE\tROOT\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", e.Name, e.Version, e.Runnable, e.Root, e.Error)
	}
	return w.Flush()
}
