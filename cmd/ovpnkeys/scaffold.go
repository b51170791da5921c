package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovpnkeys/ovpnkeys/profiles"
)

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold [dir]",
	Short: "Write the example configuration and templates",
	Long: `Write ovpnkeys.yaml.example, openssl.cnf and the server and client
profile templates into dir (default: current directory).

Existing files are never overwritten.

Examples:
  ovpnkeys scaffold
  cp ovpnkeys.yaml.example ovpnkeys.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScaffold,
}

func runScaffold(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	results, err := profiles.Scaffold(newFs(), dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Written {
			fmt.Fprintf(out, "  created  %s\n", r.Path)
		} else {
			fmt.Fprintf(out, "  exists   %s\n", r.Path)
		}
	}
	return nil
}
