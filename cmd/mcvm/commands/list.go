package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mcvm-launcher/mcvm-sub000/src/running"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known instances and which ones are running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList()
	},
}

func init() {
	ListCmd.SilenceUsage = true
}

func runList() error {
	e, err := newEnv("mcvm-list")
	if err != nil {
		return err
	}
	defer e.Close()

	entries, err := os.ReadDir(e.paths.Instances)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading instances directory: %w", err)
	}

	reg, err := running.Open(fmt.Sprintf("%s/running_instances.json", e.paths.Internal))
	if err != nil {
		return fmt.Errorf("opening running instance registry: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		fmt.Println("no instances found")
		return nil
	}
	for _, id := range ids {
		status := "stopped"
		if live, ok := reg.Get(id); ok {
			status = fmt.Sprintf("running (pid %d)", live.PID)
		}
		fmt.Printf("%-24s %s\n", id, status)
	}
	return nil
}
