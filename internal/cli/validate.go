package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/slotmatch/internal/app"
	"github.com/okian/slotmatch/internal/domain/plan"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var planPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a plan and its session supply without matching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := plan.LoadFile(planPath)
			if err != nil {
				return err
			}
			tour, err := service.New(service.FromConfig(root.cfg)...).Validate(p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d teams, %d sessions, quota %d\n",
				len(tour.Teams), len(tour.Sessions), tour.Quota)
			return err
		},
	}

	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
