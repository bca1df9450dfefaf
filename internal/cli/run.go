package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/slotmatch/internal/app"
	"github.com/okian/slotmatch/internal/domain/plan"
	"github.com/okian/slotmatch/pkg/logger"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		planPath string
		output   string
		seed     int64
		quota    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match a plan and print the assignment as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := plan.LoadFile(planPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("quota") {
				p.Quota = quota
			}
			if cmd.Flags().Changed("seed") {
				p.Seed = &seed
			}

			svc := service.New(append(service.FromConfig(root.cfg), service.WithLogger(logger.Named("cli")))...)
			tour, err := svc.Validate(p)
			if err != nil {
				return err
			}
			assignment, err := svc.Solve(cmd.Context(), tour, p.Seed)
			if err != nil {
				return fmt.Errorf("match %s: %w", planPath, err)
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(assignment); err != nil {
				return fmt.Errorf("write assignment: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file (YAML or JSON)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the assignment to this file instead of stdout")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed; overrides the plan and config")
	cmd.Flags().IntVar(&quota, "quota", 0, "Sessions per team; overrides the plan")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
