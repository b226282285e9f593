package main

import "github.com/charmbracelet/lipgloss"

// styles holds the lipgloss styles for terminal output.
type styles struct {
	Title lipgloss.Style
	Item  lipgloss.Style
	Count lipgloss.Style
	URL   lipgloss.Style
	Empty lipgloss.Style
	Dead  lipgloss.Style
	Warn  lipgloss.Style
}

// defaultStyles uses a grayscale palette with a single desaturated teal accent.
func defaultStyles() styles {
	primary := lipgloss.AdaptiveColor{Light: "#505050", Dark: "#A0A0A0"}
	subtle := lipgloss.AdaptiveColor{Light: "#888888", Dark: "#606060"}
	accent := lipgloss.AdaptiveColor{Light: "#4A7070", Dark: "#5F8787"}
	alert := lipgloss.AdaptiveColor{Light: "#A04040", Dark: "#C06060"}

	return styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),

		Item: lipgloss.NewStyle().
			Foreground(primary).
			PaddingLeft(1),

		Count: lipgloss.NewStyle().
			Foreground(subtle).
			Align(lipgloss.Right),

		URL: lipgloss.NewStyle().
			Foreground(subtle).
			PaddingLeft(1),

		Empty: lipgloss.NewStyle().
			Foreground(subtle).
			PaddingLeft(1),

		Dead: lipgloss.NewStyle().
			Foreground(alert),

		Warn: lipgloss.NewStyle().
			Foreground(subtle),
	}
}
