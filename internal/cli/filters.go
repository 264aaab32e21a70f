package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/models"
	"deal-analyzer-client/internal/render"
)

func newFiltersCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "List and manage saved deal filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			return a.protect(cmd.Context(), "listFilters", func(ctx context.Context, _ models.User) error {
				fs, err := a.Client.ListFilters(ctx).Unwrap()
				if err != nil {
					return err
				}
				a.println(render.Filters(fs))
				return nil
			})
		},
	}
	cmd.AddCommand(
		newFilterCreateCmd(app),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a saved filter",
			Args:  cobra.ExactArgs(1),
			RunE: withID(app, "deleteFilter", func(ctx context.Context, a *App, id int64) error {
				if _, err := a.Client.DeleteFilter(ctx, id).Unwrap(); err != nil {
					return err
				}
				a.println(fmt.Sprintf("Filter #%d deleted", id))
				return nil
			}),
		},
	)
	return cmd
}

func newFilterCreateCmd(app func() *App) *cobra.Command {
	var (
		f            models.FilterSetting
		maxPrice     int64
		yearBuiltMin int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Save a deal filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if f.Name == "" {
				return a.fail("createFilter", errors.NewValidationError(map[string]string{"name": "Name is required"}))
			}
			if cmd.Flags().Changed("max-price") {
				f.MaxPrice = &maxPrice
			}
			if cmd.Flags().Changed("year-built-min") {
				f.YearBuiltMin = &yearBuiltMin
			}
			return a.protect(cmd.Context(), "createFilter", func(ctx context.Context, _ models.User) error {
				created, err := a.Client.CreateFilter(ctx, f).Unwrap()
				if err != nil {
					return err
				}
				a.println(fmt.Sprintf("Filter #%d %q saved", created.ID, created.Name))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "Filter name")
	cmd.Flags().Float64Var(&f.MinCapRate, "min-cap-rate", 0, "Minimum cap rate as a fraction, e.g. 0.06")
	cmd.Flags().Int64Var(&maxPrice, "max-price", 0, "Maximum asking price")
	cmd.Flags().IntVar(&yearBuiltMin, "year-built-min", 0, "Oldest acceptable year built")
	return cmd
}

func newDashboardCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show portfolio metrics and recently analyzed deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			return a.protect(cmd.Context(), "dashboard", func(ctx context.Context, _ models.User) error {
				m, err := a.Client.DashboardMetrics(ctx).Unwrap()
				if err != nil {
					return err
				}
				recent, err := a.Client.RecentDeals(ctx).Unwrap()
				if err != nil {
					return err
				}
				a.println(render.Dashboard(m, recent))
				return nil
			})
		},
	}
}
