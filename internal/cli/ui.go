package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/overlaybx/pkg/errors"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorGray)
	styleKey    = lipgloss.NewStyle().Foreground(colorGray).Width(14)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printCounts prints labeled counts on a single dim line, skipping zeros.
//
//	12 kept · 6 discarded · 3 draws
func printCounts(pairs ...any) {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		n, _ := pairs[i+1].(int)
		if n == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d %v", n, pairs[i]))
	}
	if len(parts) == 0 {
		return
	}
	fmt.Println("  " + StyleDim.Render(strings.Join(parts, " · ")))
}

// =============================================================================
// Tables
// =============================================================================

// table renders right-aligned columns with a bold header row.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...any) {
	row := make([]string, len(cells))
	for i, c := range cells {
		switch v := c.(type) {
		case float64:
			row[i] = fmt.Sprintf("%.4g", v)
		default:
			row[i] = fmt.Sprint(v)
		}
	}
	t.rows = append(t.rows, row)
}

func (t *table) String() string {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = len(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	var b strings.Builder
	line := func(cells []string, style lipgloss.Style) {
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(style.Render(fmt.Sprintf("%*s", widths[i], c)))
		}
		b.WriteString("\n")
	}
	line(t.header, styleHeader)
	for _, r := range t.rows {
		line(r, StyleNumber)
	}
	return b.String()
}

// =============================================================================
// Utilities
// =============================================================================

// FormatError renders err for the terminal. A coded error is shown as its
// message and cause followed by the code in brackets, keeping the context
// added by wrapping. Other errors are returned as-is.
func FormatError(err error) string {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}
	prefix, ok := strings.CutSuffix(err.Error(), e.Error())
	if !ok {
		return err.Error()
	}
	msg := prefix + errors.UserMessage(err)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return fmt.Sprintf("%s [%s]", msg, errors.GetCode(err))
}

func printTitle(s string) {
	fmt.Println(StyleTitle.Render(s))
}

func printNewline() {
	fmt.Println()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
