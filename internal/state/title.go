package state

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/dbview/internal/resource"
)

// Title placeholders shown when no database is loaded.
const (
	TitleIdle    = "No database"
	TitleLoading = "Opening database..."
)

// Title returns the display name of the open database, or a placeholder.
func Title(p Provider) (primary, secondary string) {
	snap := p.Database().Snapshot()
	switch snap.State {
	case resource.Loaded:
		name := snap.Value.Name()
		return name.Primary, name.Secondary
	case resource.Loading:
		return TitleLoading, ""
	case resource.Error:
		return "Failed to open database", snap.Message()
	default:
		return TitleIdle, ""
	}
}

// TitleStyles style the two parts of a rendered title.
type TitleStyles struct {
	Primary   lipgloss.Style
	Secondary lipgloss.Style
}

// DefaultTitleStyles renders with r, so color support follows r's output.
func DefaultTitleStyles(r *lipgloss.Renderer) TitleStyles {
	return TitleStyles{
		Primary:   r.NewStyle().Bold(true),
		Secondary: r.NewStyle().Faint(true),
	}
}

// RenderTitle renders the title of p as "primary - secondary".
func RenderTitle(p Provider, styles TitleStyles) string {
	primary, secondary := Title(p)
	if secondary == "" {
		return styles.Primary.Render(primary)
	}
	return styles.Primary.Render(primary) + " - " + styles.Secondary.Render(secondary)
}
