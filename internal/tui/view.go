package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}
	if a.mode == modeHelp {
		return a.renderHelp()
	}

	header := a.renderHeader()
	status := a.renderStatusBar()
	bodyHeight := max(3, a.height-lipgloss.Height(header)-lipgloss.Height(status))

	listWidth := max(20, a.width*2/5)
	previewWidth := max(20, a.width-listWidth)

	list := listPaneStyle.
		Width(listWidth - 2).
		Height(bodyHeight - 2).
		Render(renderList(a.reader.Articles(), a.reader.Index(), listWidth-4, bodyHeight-2))

	preview := previewPaneStyle.
		Width(previewWidth - 4).
		Height(bodyHeight - 2).
		Render(a.renderPreview(previewWidth - 6))

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, preview)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (a *App) renderHeader() string {
	title := headerStyle.Render("newsd")
	if a.user != "" {
		title += headerStyle.Render("· " + a.user)
	}
	credits := creditsStyle.Render(fmt.Sprintf("%d credits ", a.reader.Credits()))
	gap := max(0, a.width-lipgloss.Width(title)-lipgloss.Width(credits))
	return title + strings.Repeat(" ", gap) + credits
}

// renderList shows a window of titles around the cursor.
func renderList(articles []v1.Article, cursor, width, height int) string {
	if len(articles) == 0 {
		return itemStyle.Render("No articles")
	}
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(len(articles), start+height)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		title := truncateStr(articles[i].Title, width-2)
		if i == cursor {
			lines = append(lines, itemSelectedStyle.Render("> "+title))
		} else {
			lines = append(lines, itemStyle.Render("  "+title))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderPreview(width int) string {
	cur, ok := a.reader.Current()
	if !ok {
		return ""
	}
	meta := fmt.Sprintf("%s · %s · %d min · +%d credits", cur.Source.Name, cur.Category, cur.ReadTime, cur.Credits)
	if a.speech != nil {
		meta += " · reading aloud"
	}
	parts := []string{
		previewTitleStyle.Width(width).Render(cur.Title),
		previewMetaStyle.Render(meta),
		previewBodyStyle.Width(width).Render(cur.Description),
	}
	if cur.Content != "" && cur.Content != cur.Description {
		parts = append(parts, previewBodyStyle.Width(width).Render("\n"+cur.Content))
	}
	if cur.URL != "" {
		parts = append(parts, previewLinkStyle.Render(cur.URL))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderStatusBar() string {
	left := fmt.Sprintf(" %d/%d", min(a.reader.Index()+1, len(a.reader.Articles())), len(a.reader.Articles()))
	switch {
	case a.err != nil:
		left += " · " + errorStyle.Render(a.err.Error())
	case a.status != "":
		left += " · " + a.status
	}
	if a.loading {
		left = a.spinner.View() + left
	}

	right := " ←/→ move  s save  m read  a listen  / search  ? help  q quit "
	if a.mode == modeSearch {
		left = a.searchInput.View()
		right = " esc cancel  enter search "
	}

	gap := max(0, a.width-lipgloss.Width(left)-lipgloss.Width(right))
	return statusBarStyle.Width(a.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) renderHelp() string {
	keys := [][2]string{
		{"j / → / l", "next article"},
		{"k / ← / h", "previous article"},
		{"s", "save article"},
		{"m / enter", "mark read and collect credits"},
		{"a / space", "start or stop reading aloud"},
		{"r", "refresh headlines"},
		{"/", "search"},
		{"q / ctrl+c", "quit"},
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Keys") + "\n\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s  %s\n", itemSelectedStyle.Render(fmt.Sprintf("%-12s", k[0])), k[1])
	}
	b.WriteString("\n" + itemStyle.Render("  press ? or esc to return"))
	return b.String()
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
