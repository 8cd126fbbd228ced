package ui

import "fmt"

// Color palette - asitop-inspired lime green theme.
// Single accent color for professional, distinctive look.
const (
	ColorLime     = "154" // Primary accent (#AFFF00) - bright lime green
	ColorLimeDim  = "106" // Dimmed lime for inactive/borders
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Box borders, separators
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Style is a minimal ANSI SGR style: bold and/or a 256-color foreground.
// It covers what the renderers need without pulling in a terminal-styling
// library - a zero-value Style renders text unchanged.
type Style struct {
	bold  bool
	color string // 256-color palette index, empty means no color
}

func newStyle(bold bool, color string) Style {
	return Style{bold: bold, color: color}
}

// Render wraps text in the style's ANSI escape codes.
func (s Style) Render(text string) string {
	if !s.bold && s.color == "" {
		return text
	}
	prefix := "\033["
	if s.bold {
		prefix += "1"
		if s.color != "" {
			prefix += ";"
		}
	}
	if s.color != "" {
		prefix += fmt.Sprintf("38;5;%s", s.color)
	}
	prefix += "m"
	return prefix + text + "\033[0m"
}

// Styles holds all UI styles for indexing and status output.
type Styles struct {
	// Text styles
	Header   Style
	Success  Style
	Warning  Style
	Error    Style
	Dim      Style
	Stage    Style
	Active   Style
	Progress Style

	// Panel/layout styles
	Border    Style
	Panel     Style
	Sparkline Style
	Speed     Style
	Label     Style
}

// DefaultStyles returns styled components for color-capable terminals.
// Uses asitop-inspired lime green palette.
func DefaultStyles() Styles {
	return Styles{
		// Text styles - lime green accent
		Header:   newStyle(true, ColorLime),
		Success:  newStyle(false, ColorLime),
		Warning:  newStyle(false, ColorYellow),
		Error:    newStyle(false, ColorRed),
		Dim:      newStyle(false, ColorDarkGray),
		Stage:    newStyle(false, ColorLimeDim),
		Active:   newStyle(true, ColorLime),
		Progress: newStyle(false, ColorLime),

		// Panel/layout styles
		Border:    newStyle(false, ColorDarkGray),
		Panel:     newStyle(false, ColorDarkGray),
		Sparkline: newStyle(false, ColorLime),
		Speed:     newStyle(false, ColorGray),
		Label:     newStyle(false, ColorGray),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
