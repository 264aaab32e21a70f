package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/models"
	"deal-analyzer-client/internal/render"
)

func newDealsCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deals",
		Short: "List and manage deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			return a.protect(cmd.Context(), "listDeals", func(ctx context.Context, _ models.User) error {
				deals, err := a.Client.ListDeals(ctx).Unwrap()
				if err != nil {
					return err
				}
				a.println(render.DealList(deals))
				return nil
			})
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one deal",
			Args:  cobra.ExactArgs(1),
			RunE: withID(app, "getDeal", func(ctx context.Context, a *App, id int64) error {
				deal, err := a.Client.GetDeal(ctx, id).Unwrap()
				if err != nil {
					return err
				}
				a.println(render.Deal(deal))
				return nil
			}),
		},
		newDealDeleteCmd(app),
		&cobra.Command{
			Use:   "fetch <id>",
			Short: "Re-fetch property data for a deal",
			Args:  cobra.ExactArgs(1),
			RunE: withID(app, "fetchDealData", func(ctx context.Context, a *App, id int64) error {
				res, err := a.Client.FetchDealData(ctx, id).Unwrap()
				if err != nil {
					return err
				}
				if res.Message != "" {
					a.println(res.Message)
				}
				deal, err := a.Client.GetDeal(ctx, id).Unwrap()
				if err != nil {
					return err
				}
				a.println(render.Deal(deal))
				return nil
			}),
		},
	)
	return cmd
}

func newDealDeleteCmd(app func() *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a deal with its documents and analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withID(app, "deleteDeal", func(ctx context.Context, a *App, id int64) error {
				if !yes {
					ok, err := promptConfirm(cmd, fmt.Sprintf("Delete deal #%d?", id))
					if err != nil {
						return err
					}
					if !ok {
						a.println("Cancelled")
						return nil
					}
				}
				if _, err := a.Client.DeleteDeal(ctx, id).Unwrap(); err != nil {
					return err
				}
				a.println(fmt.Sprintf("Deal #%d deleted", id))
				return nil
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// withID parses the first argument as a resource id and runs fn behind the
// route guard.
func withID(app func() *App, action string, fn func(ctx context.Context, a *App, id int64) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a := app()
		id, err := parseID(args[0])
		if err != nil {
			return a.fail(action, err)
		}
		return a.protect(cmd.Context(), action, func(ctx context.Context, _ models.User) error {
			return fn(ctx, a, id)
		})
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError(map[string]string{"id": fmt.Sprintf("%q is not a valid id", arg)})
	}
	return id, nil
}
