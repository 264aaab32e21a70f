package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/models"
	"deal-analyzer-client/internal/render"
	"deal-analyzer-client/internal/sheets"
	"deal-analyzer-client/internal/wizard"
)

type analyzeFlags struct {
	dealID   int64
	address  string
	city     string
	state    string
	zip      string
	propType string
	price    string
	t12      string
	rentRoll string
}

func (f analyzeFlags) form() (models.DealInput, error) {
	in := models.DealInput{
		Address:      f.address,
		City:         f.city,
		State:        f.state,
		ZipCode:      f.zip,
		PropertyType: models.PropertyType(f.propType),
	}
	if f.price != "" {
		price, err := decimal.NewFromString(strings.ReplaceAll(f.price, ",", ""))
		if err != nil {
			return in, errors.NewValidationError(map[string]string{"asking_price": "Asking price must be a number"})
		}
		in.AskingPrice = price
	}
	return in, nil
}

// newAnalyzeCmd drives the three-step deal wizard non-interactively: intake,
// both documents, then analysis. With --deal it starts at the analysis step.
func newAnalyzeCmd(app func() *App) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Create a deal, upload its documents and run the analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			return a.protect(cmd.Context(), "analyze", func(ctx context.Context, _ models.User) error {
				if f.dealID > 0 {
					deal, err := a.Client.GetDeal(ctx, f.dealID).Unwrap()
					if err != nil {
						return err
					}
					w := a.NewWizardForDeal(deal)
					return runAnalysis(ctx, a, w)
				}
				if err := promptIntake(cmd, &f); err != nil {
					return err
				}
				return runWizard(ctx, a, a.NewWizard(), f)
			})
		},
	}
	fl := cmd.Flags()
	fl.Int64Var(&f.dealID, "deal", 0, "Analyze an existing deal")
	fl.StringVar(&f.address, "address", "", "Street address")
	fl.StringVar(&f.city, "city", "", "City")
	fl.StringVar(&f.state, "state", "", "State")
	fl.StringVar(&f.zip, "zip", "", "ZIP code")
	fl.StringVar(&f.propType, "type", string(models.PropertyMultifamily), "Property type (multifamily, office, retail, industrial, mixed-use)")
	fl.StringVar(&f.price, "price", "", "Asking price")
	fl.StringVar(&f.t12, "t12", "", "T12 file")
	fl.StringVar(&f.rentRoll, "rent-roll", "", "Rent roll file")
	return cmd
}

func runWizard(ctx context.Context, a *App, w *wizard.Machine, f analyzeFlags) error {
	form, err := f.form()
	if err != nil {
		return err
	}
	if _, err := w.SubmitIntake(ctx, form); err != nil {
		return err
	}
	if err := w.Advance(); err != nil {
		return err
	}

	files := map[models.DocumentKind]string{models.DocT12: f.t12, models.DocRentRoll: f.rentRoll}
	for _, kind := range models.DocumentKinds {
		path := files[kind]
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		summary, err := sheets.Inspect(string(kind), path, content)
		if err != nil {
			return err
		}
		if err := w.StageDocument(kind, filepath.Base(path), content); err != nil {
			return err
		}
		a.println(fmt.Sprintf("%s: %s (%s)", kind.Label(), filepath.Base(path), summary))
		// Failures are reported through the notifier and the slot; keep going
		// so the other document still gets uploaded.
		_ = w.SaveDocument(ctx, kind)
	}
	a.println(render.Wizard(w.View()))
	if err := w.Advance(); err != nil {
		return err
	}
	if err := w.Advance(); err != nil {
		return err
	}
	return runAnalysis(ctx, a, w)
}

func runAnalysis(ctx context.Context, a *App, w *wizard.Machine) error {
	if _, err := w.StartAnalysis(ctx); err != nil {
		return err
	}
	a.println(render.Wizard(w.View()))
	return nil
}

func newAnalysisCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis <dealID>",
		Short: "Show the latest analysis of a deal",
		Args:  cobra.ExactArgs(1),
		RunE: withID(app, "getAnalysis", func(ctx context.Context, a *App, id int64) error {
			res, err := a.Client.GetAnalysis(ctx, id).Unwrap()
			if err != nil {
				return err
			}
			a.println(render.Analysis(res))
			return nil
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recommendations <dealID>",
		Short: "Show the recommendations for a deal",
		Args:  cobra.ExactArgs(1),
		RunE: withID(app, "getRecommendations", func(ctx context.Context, a *App, id int64) error {
			recs, err := a.Client.GetRecommendations(ctx, id).Unwrap()
			if err != nil {
				return err
			}
			if len(recs.Recommendations) == 0 {
				a.println("No recommendations.")
				return nil
			}
			for _, r := range recs.Recommendations {
				a.println("• " + r)
			}
			return nil
		}),
	})
	return cmd
}
