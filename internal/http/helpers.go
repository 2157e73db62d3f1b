package http

import (
	"html/template"
	"strings"
	"time"

	"nozze/internal/core"
)

// formatEuros formats cents as a Euro currency string (e.g., "€12,34").
func formatEuros(m core.Money) string {
	return m.String()
}

// formatOptionalEuros renders a cost that may not be recorded yet.
func formatOptionalEuros(m *core.Money) string {
	if m == nil {
		return "—"
	}
	return m.String()
}

// inputEuros renders an amount for an <input> value: "1234.50" or blank.
func inputEuros(m *core.Money) string {
	if m == nil {
		return ""
	}
	return strings.TrimPrefix(strings.Replace(m.String(), ",", ".", 1), "€")
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// percent returns part/total as a whole percentage clamped to 0..100.
func percent(part, total int64) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	p := int((part*100 + total/2) / total)
	return min(p, 100)
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func inputAmount(m core.Money) string { return inputEuros(&m) }

func formatDay(t time.Time) string { return formatDate(&t) }

func share(part, total int) int { return percent(int64(part), int64(total)) }

func idEq(id *int64, other int64) bool { return id != nil && *id == other }

var templateFuncs = template.FuncMap{
	"euros":         formatEuros,
	"optEuros":      formatOptionalEuros,
	"inEuros":       inputEuros,
	"inAmount":      inputAmount,
	"date":          formatDate,
	"day":           formatDay,
	"percent":       percent,
	"share":         share,
	"idEq":          idEq,
	"dict":          dict,
	"rsvpLabel":     label[core.RSVPStatus],
	"sideLabel":     label[core.Side],
	"paymentLabel":  label[core.PaymentStatus],
	"vendorLabel":   label[core.VendorStatus],
	"priorityLabel": label[core.TaskPriority],
	"strategyLabel": label[string],
}
