// Command mcvm is a thin example embedder over the mcvm library: it
// owns no update/launch/package business logic, it only parses flags
// and calls into src/update, src/instance, and src/launch. Uses the
// same cobra command layout (rootCmd + AddCommand, per-command init()
// registering flags) as the rest of this codebase's CLI surfaces.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub000/cmd/mcvm/commands"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "mcvm",
	Short:   "mcvm - a Minecraft version/instance management library",
	Version: version,
}

func init() {
	rootCmd.SetVersionTemplate(`{{printf "mcvm %s\n" .Version}}`)
	rootCmd.AddCommand(commands.UpdateCmd)
	rootCmd.AddCommand(commands.LaunchCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.PkgInstallCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
