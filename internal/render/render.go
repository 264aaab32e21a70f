// Package render turns models and wizard snapshots into terminal text.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/models"
	"deal-analyzer-client/internal/wizard"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#2563EB"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(16)

	passStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#10B981")).
			Padding(0, 1)

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#EF4444")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB")).Bold(true)
)

// Badge is the Pass/Fail marker shown with every analysis.
func Badge(pass bool) string {
	if pass {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}

func Deal(d models.Deal) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Deal #%d", d.ID)) + "\n")
	row(&b, "Address", d.Address)
	row(&b, "Location", strings.TrimSpace(fmt.Sprintf("%s, %s %s", d.City, d.State, d.ZipCode)))
	row(&b, "Property type", string(d.PropertyType))
	row(&b, "Asking price", Money(d.AskingPrice))
	if fd := d.FetchedData; fd != nil {
		row(&b, "Beds / baths", fmt.Sprintf("%d / %g", fd.Bedrooms, fd.Bathrooms))
		if fd.Sqft > 0 {
			row(&b, "Square feet", fmt.Sprintf("%d", fd.Sqft))
		}
		if !fd.Rent.IsZero() {
			row(&b, "Rent estimate", Money(fd.Rent))
		}
		if fd.CapRate > 0 {
			row(&b, "Fetched cap", Percent(fd.CapRate))
		}
		if fd.YearBuilt > 0 {
			row(&b, "Year built", fmt.Sprintf("%d", fd.YearBuilt))
		}
		if !fd.Zestimate.IsZero() {
			row(&b, "Zestimate", Money(fd.Zestimate))
		}
	}
	if d.AnalysisResult != nil {
		row(&b, "Analysis", fmt.Sprintf("#%d", *d.AnalysisResult))
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// DealList is one line per deal, newest id last.
func DealList(deals []models.Deal) string {
	if len(deals) == 0 {
		return mutedStyle.Render("No deals yet.")
	}
	var b strings.Builder
	for _, d := range deals {
		status := mutedStyle.Render("not analyzed")
		if d.AnalysisResult != nil {
			status = successStyle.Render("analyzed")
		}
		fmt.Fprintf(&b, "%-6d %-32s %-12s %14s  %s\n", d.ID, truncate(d.Address, 32), d.PropertyType, Money(d.AskingPrice), status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func Analysis(r models.AnalysisResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Analysis for deal #%d", r.Deal)) + "  " + Badge(r.PassStatus) + "\n")
	row(&b, "Cap rate", Percent(r.CapRate))
	row(&b, "Cash on cash", Percent(r.CashOnCash))
	irr := "N/A"
	if r.IRR != nil {
		irr = Percent(*r.IRR)
	}
	row(&b, "IRR", irr)
	if r.RiskScore != nil {
		row(&b, "Risk", string(*r.RiskScore))
	}
	if r.RiskExplanation != nil && *r.RiskExplanation != "" {
		row(&b, "Risk notes", *r.RiskExplanation)
	}
	list(&b, "Risk flags", r.RiskFlags)
	list(&b, "Recommendations", r.Recommendations)
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func Dashboard(m models.DashboardMetrics, recent []models.RecentDeal) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard") + "\n")
	row(&b, "Total deals", fmt.Sprintf("%d", m.TotalDeals))
	row(&b, "Avg cap rate", Percent(m.AverageCapRate))
	row(&b, "Pass / fail", fmt.Sprintf("%d / %d", m.PassCount, m.FailCount))
	if len(recent) > 0 {
		b.WriteString("\n" + titleStyle.Render("Recently analyzed") + "\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "%-6d %-32s %8s  %s  %s\n", r.DealID, truncate(r.Address, 32), Percent(r.CapRate), Badge(r.PassStatus), mutedStyle.Render(r.AnalyzedOn))
		}
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func Filters(fs []models.FilterSetting) string {
	if len(fs) == 0 {
		return mutedStyle.Render("No saved filters.")
	}
	var b strings.Builder
	for _, f := range fs {
		maxPrice := "any"
		if f.MaxPrice != nil {
			maxPrice = Money(decimal.NewFromInt(*f.MaxPrice))
		}
		built := "any"
		if f.YearBuiltMin != nil {
			built = fmt.Sprintf("%d+", *f.YearBuiltMin)
		}
		fmt.Fprintf(&b, "%-6d %-24s cap >= %-8s price <= %-14s built %s\n", f.ID, truncate(f.Name, 24), Percent(f.MinCapRate), maxPrice, built)
	}
	return strings.TrimRight(b.String(), "\n")
}

var stepNames = []string{"Property Details", "Upload Documents", "Analysis"}

// Wizard renders the progress header and the current step's state.
func Wizard(v wizard.View) string {
	var b strings.Builder
	for i, name := range stepNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if i+1 <= v.Step {
			label = activeStyle.Render(label)
		} else {
			label = mutedStyle.Render(label)
		}
		if i > 0 {
			b.WriteString(mutedStyle.Render(" > "))
		}
		b.WriteString(label)
	}
	b.WriteString("\n")

	switch v.Step {
	case 1:
		if v.IsSubmitting {
			b.WriteString(mutedStyle.Render("Fetching property data...") + "\n")
		}
		if len(v.FieldErrors) > 0 {
			b.WriteString(FieldErrors(v.FieldErrors) + "\n")
		}
	case 2:
		for _, s := range v.Slots {
			fmt.Fprintf(&b, "%-10s %s\n", s.Kind.Label(), slotStatus(s))
		}
	case 3:
		if v.IsAnalyzing {
			b.WriteString(mutedStyle.Render("Analyzing deal...") + "\n")
		}
		if v.Result != nil {
			b.WriteString(Analysis(*v.Result) + "\n")
		}
	}
	if v.Err != nil && len(v.FieldErrors) == 0 {
		b.WriteString(Error(v.Err) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func Notification(n wizard.Notification) string {
	if n.Level == wizard.LevelError {
		return errorStyle.Render("✗ " + n.Message)
	}
	return successStyle.Render("✓ " + n.Message)
}

// FieldErrors lists per-field messages in field order.
func FieldErrors(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = errorStyle.Render(fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(lines, "\n")
}

func Error(err error) string {
	stdErr := errors.AsStandardError(err)
	if stdErr == nil {
		return ""
	}
	if len(stdErr.Fields) > 0 {
		return FieldErrors(stdErr.Fields)
	}
	return errorStyle.Render(stdErr.Message)
}

// Percent formats a fraction, 0.072 -> "7.20%".
func Percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// Money formats whole dollars with thousands separators.
func Money(d decimal.Decimal) string {
	s := d.Round(0).Abs().StringFixed(0)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if d.IsNegative() {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

func slotStatus(s wizard.Slot) string {
	switch s.Status {
	case wizard.Saved:
		return successStyle.Render("saved " + s.FileName)
	case wizard.Failed:
		msg := "upload failed"
		if s.Err != nil {
			msg += ": " + s.Err.Message
		}
		return errorStyle.Render(msg)
	case wizard.Saving:
		return mutedStyle.Render("saving " + s.FileName + "...")
	case wizard.Staged:
		return "staged " + s.FileName
	default:
		return mutedStyle.Render("not selected")
	}
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + value + "\n")
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(labelStyle.Render(title) + "\n")
	for _, it := range items {
		b.WriteString("  • " + it + "\n")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
