package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// TaskInfo describes one known task.
type TaskInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Cases       []string `json:"cases"`

	// Reference is true when the task ships a memsim reference world.
	Reference bool `json:"reference"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known tasks",
		Long: `List the built-in tasks and any tasks defined in definition files.

Tasks marked "reference" can run with --backend memsim.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, files, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "scenario definition file or directory (repeatable)")

	return cmd
}

func runList(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	registry, err := loadRegistry(append(append([]string{}, opts.App.Definitions...), files...))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDefinition, "failed to load definitions", err)
	}

	entries := registry.All()
	infos := make([]TaskInfo, 0, len(entries))
	for _, e := range entries {
		sc := e.Build()
		info := TaskInfo{
			Name:        e.Name,
			Description: e.Description,
			Cases:       make([]string, 0, len(sc.Cases)),
			Reference:   e.Reference != nil,
		}
		for _, c := range sc.Cases {
			info.Cases = append(info.Cases, c.Name)
		}
		infos = append(infos, info)
	}

	return formatter.Success(infos, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TASK\tCASES\tREFERENCE\tDESCRIPTION")
		for _, info := range infos {
			ref := "-"
			if info.Reference {
				ref = "yes"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", info.Name, len(info.Cases), ref, info.Description)
		}
		tw.Flush()
	})
}
