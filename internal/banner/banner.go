package banner

import (
	"cdnbench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
          __      __                    __  
  _______/ /___  / /_  ___  ____  _____/ /_ 
 / ___/ __  / __ \/ __ \/ _ \/ __ \/ ___/ __ \
/ /__/ /_/ / / / / /_/ /  __/ / / / /__/ / / /
\___/\__,_/_/ /_/_.___/\___/_/ /_/\___/_/ /_/ `

	tagline := renderer.NewStyle().Foreground(styles.ColorSubtle).
		Render("fastly vs cloudfront vs s3, one uncached artifact at a time")

	return "\n" + style.Render(ascii) + "\n" + tagline + "\n"
}
