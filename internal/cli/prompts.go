package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/models"
)

// interactive reports whether prompts can be shown. Piped input falls back to
// reading plain lines.
func interactive(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func promptPassword(cmd *cobra.Command) (string, error) {
	if !interactive(cmd) {
		return readLine(cmd.InOrStdin()), nil
	}
	var password string
	err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required))
	return password, err
}

func promptConfirm(cmd *cobra.Command, msg string) (bool, error) {
	if !interactive(cmd) {
		return true, nil
	}
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: msg, Default: false}, &ok)
	return ok, err
}

// promptIntake asks for the intake fields that were not given as flags. The
// answers are checked again by the wizard; the validators here only keep the
// prompt from accepting obvious mistakes.
func promptIntake(cmd *cobra.Command, f *analyzeFlags) error {
	if !interactive(cmd) {
		return nil
	}

	var qs []*survey.Question
	text := func(name, msg string, dst string) {
		if dst == "" {
			qs = append(qs, &survey.Question{Name: name, Prompt: &survey.Input{Message: msg}, Validate: survey.Required})
		}
	}
	text("address", "Street address:", f.address)
	text("city", "City:", f.city)
	text("state", "State:", f.state)
	text("zip", "ZIP code:", f.zip)
	if !cmd.Flags().Changed("type") {
		opts := make([]string, len(models.PropertyTypes))
		for i, pt := range models.PropertyTypes {
			opts[i] = string(pt)
		}
		qs = append(qs, &survey.Question{
			Name:   "type",
			Prompt: &survey.Select{Message: "Property type:", Options: opts, Default: f.propType},
		})
	}
	if f.price == "" {
		qs = append(qs, &survey.Question{
			Name:   "price",
			Prompt: &survey.Input{Message: "Asking price ($):"},
			Validate: func(ans interface{}) error {
				d, err := decimal.NewFromString(strings.ReplaceAll(fmt.Sprint(ans), ",", ""))
				if err != nil || !d.IsPositive() {
					return fmt.Errorf("price must be a number greater than 0")
				}
				return nil
			},
		})
	}
	text("t12", "T12 file (.pdf, .xlsx, .csv):", f.t12)
	text("rentroll", "Rent roll file (.pdf, .xlsx, .csv):", f.rentRoll)
	if len(qs) == 0 {
		return nil
	}

	answers := struct {
		Address  string `survey:"address"`
		City     string `survey:"city"`
		State    string `survey:"state"`
		Zip      string `survey:"zip"`
		Type     string `survey:"type"`
		Price    string `survey:"price"`
		T12      string `survey:"t12"`
		RentRoll string `survey:"rentroll"`
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}

	fill := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	fill(&f.address, answers.Address)
	fill(&f.city, answers.City)
	fill(&f.state, answers.State)
	fill(&f.zip, answers.Zip)
	fill(&f.propType, answers.Type)
	fill(&f.price, answers.Price)
	fill(&f.t12, answers.T12)
	fill(&f.rentRoll, answers.RentRoll)
	return nil
}
