package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorGreen  = lipgloss.Color("40")  // success, current row
	colorYellow = lipgloss.Color("220") // loading, writes
	colorRed    = lipgloss.Color("196") // errors
	colorCyan   = lipgloss.Color("39")  // card faces
	colorGray   = lipgloss.Color("244") // labels
	colorWhite  = lipgloss.Color("255") // values
	colorDim    = lipgloss.Color("240") // secondary text
)

// Text styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	labelStyle = lipgloss.NewStyle().
			Width(20).
			Foreground(colorGray)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	staleStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	successStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(10).
			Align(lipgloss.Right)

	// Practice card box
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(1, 4).
			Width(56).
			Align(lipgloss.Center)

	faceStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	progressFillStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(colorDim)

	// Request log styles
	methodGetStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Width(7)

	methodPostStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Width(7)

	methodOtherStyle = lipgloss.NewStyle().
				Foreground(colorCyan).
				Width(7)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(colorRed)

	pathStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	durationStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// MethodText returns styled HTTP method
func MethodText(method string) string {
	switch method {
	case "GET":
		return methodGetStyle.Render(method)
	case "POST", "PATCH", "DELETE":
		return methodPostStyle.Render(method)
	default:
		return methodOtherStyle.Render(method)
	}
}

// StatusCodeText returns styled HTTP status code
func StatusCodeText(code int) string {
	if code >= 200 && code < 400 {
		return statusOKStyle.Render(strconv.Itoa(code))
	}
	return statusErrorStyle.Render(strconv.Itoa(code))
}

// ProgressBar renders frac of width cells as filled.
func ProgressBar(frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(frac*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return progressFillStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
