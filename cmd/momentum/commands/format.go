package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// printer writes human-readable reports. Logs go to stderr, reports to w.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

// Header prints a titled double-line block
func (p *printer) Header(title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, doubleLine)
	fmt.Fprintf(p.w, "  %s\n", title)
	fmt.Fprintln(p.w, doubleLine)
}

func (p *printer) Separator() {
	fmt.Fprintln(p.w, singleLine)
}

// Section prints an emoji-prefixed section title
func (p *printer) Section(icon, title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "%s %s\n", icon, title)
}

// KeyValue prints an aligned key-value pair
func (p *printer) KeyValue(key, value string, keyWidth int) {
	fmt.Fprintf(p.w, "   %-*s : %s\n", keyWidth, key, value)
}

// TableHeader prints column titles and an underline as wide as the table
func (p *printer) TableHeader(columns []string, widths []int) {
	p.TableRow(columns, widths)

	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2 // spacing
		}
	}
	fmt.Fprintln(p.w, strings.Repeat("─", total))
}

// TableRow prints one left-aligned row
func (p *printer) TableRow(values []string, widths []int) {
	cells := make([]string, len(values))
	for i, val := range values {
		cells[i] = fmt.Sprintf("%-*s", widths[i], val)
	}
	fmt.Fprintln(p.w, strings.TrimRight(strings.Join(cells, "  "), " "))
}

func (p *printer) Success(message string) {
	fmt.Fprintf(p.w, "✅ %s\n", message)
}

func (p *printer) Error(message string) {
	fmt.Fprintf(p.w, "❌ %s\n", message)
}

// Warning prints a warning message
func (p *printer) Warning(message string) {
	fmt.Fprintf(p.w, "⚠️  %s\n", message)
}

func (p *printer) Info(message string) {
	fmt.Fprintf(p.w, "ℹ️  %s\n", message)
}

// JSON writes v as indented JSON
func (p *printer) JSON(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatNumber rounds to an integer and inserts thousands separators
func formatNumber(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	s := fmt.Sprintf("%d", n)
	var result []rune
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, c)
	}
	return sign + string(result)
}

// formatPercent renders a fraction as a signed percentage
func formatPercent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}
