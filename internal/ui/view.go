package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"regtree/internal/domain"
	"regtree/internal/services"
	"regtree/internal/tree"
)

const maxLabelWidth = 48

type uiStyles struct {
	headerStyle   lipgloss.Style
	mutedStyle    lipgloss.Style
	statusStyle   lipgloss.Style
	warnStyle     lipgloss.Style
	cursorStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	connector     lipgloss.Style
	panelBorder   lipgloss.Style
}

func stylesFor(theme string) uiStyles {
	if strings.ToLower(theme) == "light" {
		return uiStyles{
			headerStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("235")),
			mutedStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
			statusStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("25")).Bold(true),
			warnStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("124")).Bold(true),
			cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("90")).Bold(true),
			selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("28")).Bold(true),
			connector:     lipgloss.NewStyle().Foreground(lipgloss.Color("248")),
			panelBorder:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		}
	}
	return uiStyles{
		headerStyle:   lipgloss.NewStyle().Bold(true),
		mutedStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		statusStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true),
		warnStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true),
		cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		connector:     lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		panelBorder:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (model Model) View() string {
	styles := stylesFor(model.options.Theme)
	if model.showHelp {
		return renderHelpView(model, styles)
	}
	body := renderBody(model, styles)
	footer := renderFooter(model, styles)
	return strings.Join([]string{body, footer}, "\n")
}

func renderBody(model Model, styles uiStyles) string {
	bodyHeight := model.listHeight() + 1
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	leftWidth, rightWidth, showRight := splitPanels(model.width)
	left := renderTreePanel(model, styles, bodyHeight, leftWidth)
	if !showRight {
		return left
	}
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render("│")
	right := renderDetailPanel(model, styles, rightWidth, bodyHeight)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

func renderFooter(model Model, styles uiStyles) string {
	statusLine := trimStatus(model.status, model.width)
	statusStyle := styles.mutedStyle
	if strings.Contains(strings.ToLower(model.status), "error") {
		statusStyle = styles.warnStyle
	}
	statusLine = statusStyle.Render(statusLine)

	info := fmt.Sprintf("Rows: %d  Open: %d", model.controller.Len(), len(model.controller.ExpandedIDs()))
	if search := model.options.Search; search != nil {
		if search.SearchTerm != "" {
			info += fmt.Sprintf("  Search: %s", search.SearchTerm)
		}
		if label := search.sortLabel(); label != "" {
			info += fmt.Sprintf("  Sort: %s", label)
		}
	} else if sort := model.options.Filters.SortOrEmpty(); sort != "" {
		info += fmt.Sprintf("  Sort: %s", sort)
	}
	keys := "↑/↓ move  → expand  ← collapse  enter toggle  / search  o sort  r refresh  y copy  ? help  q quit"
	if model.searching {
		keys = "type to search  enter apply  esc cancel"
	}
	footerLine := padLine(info, keys, model.width)
	return strings.Join([]string{statusLine, styles.mutedStyle.Render(footerLine)}, "\n")
}

func renderTreePanel(model Model, styles uiStyles, height, width int) string {
	if width < 20 {
		width = 20
	}
	contentWidth := maxInt(width-2, 10)
	title := model.options.Title
	if title == "" {
		title = "regtree"
	}
	rootLabel := ""
	if root := model.controller.Root(); root != nil {
		rootLabel = root.Label
	}
	state := "IDLE"
	if model.loadingCount() > 0 {
		state = "LOADING"
	}
	headerLine := padLine(styles.headerStyle.Render(title)+"  "+rootLabel, styles.statusStyle.Render(state), contentWidth)

	rows := model.controller.Rows()
	listHeight := maxInt(height-1, 1)
	lines := make([]string, 0, height)
	lines = append(lines, headerLine)
	if len(rows) == 0 {
		lines = append(lines, styles.mutedStyle.Render("Nothing to show"))
	}

	start := clamp(model.viewTop, 0, maxInt(len(rows)-1, 0))
	end := start + listHeight
	if end > len(rows) {
		end = len(rows)
	}
	prefixes := connectorPrefixes(rows, start, end)
	_, cursor := model.controller.Focused()
	for index := start; index < end; index++ {
		node := rows[index]
		prefix := styles.connector.Render(prefixes[index-start])
		line := prefix + renderRow(model, styles, node)
		if index == cursor {
			line = styles.cursorStyle.Render("›") + line
		} else {
			line = " " + line
		}
		lines = append(lines, lipgloss.NewStyle().MaxWidth(contentWidth).Render(line))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return styles.panelBorder.Width(contentWidth).Render(strings.Join(lines, "\n"))
}

// connectorPrefixes builds the guide lines for rows[start:end]. Rows before
// start are walked so ancestors outside the window still draw their rails.
func connectorPrefixes(rows tree.Rows, start, end int) []string {
	prefixes := make([]string, 0, end-start)
	lastAt := []bool{}
	for index := 0; index < end; index++ {
		node := rows[index]
		level := node.Level
		if level < 1 {
			level = 1
		}
		for len(lastAt) < level {
			lastAt = append(lastAt, false)
		}
		lastAt = lastAt[:level]
		lastAt[level-1] = node.IsLastChild
		if index < start {
			continue
		}
		var builder strings.Builder
		for depth := 0; depth < level-1; depth++ {
			if lastAt[depth] {
				builder.WriteString("    ")
			} else {
				builder.WriteString("│   ")
			}
		}
		if node.IsLastChild {
			builder.WriteString("└── ")
		} else {
			builder.WriteString("├── ")
		}
		prefixes = append(prefixes, builder.String())
	}
	return prefixes
}

func renderRow(model Model, styles uiStyles, node *domain.TreeNode) string {
	controller := model.controller
	switch node.TreeNodeType {
	case domain.TreeNodeLoading:
		return model.spinner.View() + styles.mutedStyle.Render(" Loading...")
	case domain.TreeNodeError:
		return styles.warnStyle.Render("✗ " + node.Label)
	case domain.TreeNodeEmpty:
		return styles.mutedStyle.Render("No results found")
	case domain.TreeNodeLoadMore:
		if controller.IsLoading(node.Key()) {
			return model.spinner.View() + styles.mutedStyle.Render(" Loading more...")
		}
		return styles.statusStyle.Render("Load more")
	case domain.TreeNodeHeader:
		if model.options.RenderNodeHeader != nil {
			return model.options.RenderNodeHeader(node)
		}
		return styles.headerStyle.Render(node.Label)
	case domain.TreeNodeSearch:
		return renderSearchRow(model, styles)
	}

	indicator := "• "
	if node.IsFolder() {
		switch {
		case controller.IsLoading(node.Key()):
			indicator = "◌ "
		case controller.IsExpanded(node.Key()):
			indicator = "▾ "
		default:
			indicator = "▸ "
		}
	}
	label := runewidth.Truncate(node.Label, maxLabelWidth, "…")
	switch {
	case node.Disabled:
		label = styles.mutedStyle.Render(label)
	case controller.IsActive(node.ID):
		label = styles.selectedStyle.Render(label)
	case controller.IsOpen(node.ID):
		label = styles.headerStyle.Render(label)
	}
	line := indicator + label
	if model.options.RenderNodeAction != nil {
		if action := model.options.RenderNodeAction(node); action != "" {
			line += "  " + styles.mutedStyle.Render(action)
		}
	}
	return line
}

func renderSearchRow(model Model, styles uiStyles) string {
	term := model.controller.SearchConfig().SearchOrEmpty()
	var field string
	switch {
	case model.searching:
		field = model.search.View()
	case term != "":
		field = term
	default:
		field = styles.mutedStyle.Render("press / to search")
	}
	line := "⌕ " + field
	if label := model.options.Search.sortLabel(); label != "" {
		line += "  " + styles.mutedStyle.Render("["+label+"]")
	}
	return line
}

func renderDetailPanel(model Model, styles uiStyles, width, height int) string {
	contentWidth := maxInt(width-2, 10)
	node, _ := model.controller.Focused()
	if node == nil {
		return styles.panelBorder.Width(contentWidth).Render("No selection")
	}
	lines := []string{
		styles.headerStyle.Render("Id"),
		node.ID,
		"",
		styles.headerStyle.Render("Type"),
		fmt.Sprintf("%s (%s)", node.Type, node.TreeNodeType),
	}
	if node.Value != "" && node.Value != node.ID {
		lines = append(lines, "", styles.headerStyle.Render("Value"), node.Value)
	}
	if node.IsFolder() {
		config := model.controller.Config(node.ID)
		lines = append(lines, "", styles.headerStyle.Render("State"), folderState(model.controller, node))
		if config.Page != nil {
			lines = append(lines, fmt.Sprintf("Pages : %d", config.PageOrZero()+1))
		}
	}
	details := describe(node)
	if model.options.Describe != nil {
		details = model.options.Describe(node)
	}
	if len(details) > 0 {
		lines = append(lines, "", styles.headerStyle.Render("Details"))
		lines = append(lines, details...)
	}
	content := strings.Join(lines, "\n")
	content = lipgloss.NewStyle().Width(contentWidth).Height(height).Render(content)
	return styles.panelBorder.Width(contentWidth).Render(content)
}

func folderState(controller *tree.Controller, node *domain.TreeNode) string {
	key := node.Key()
	switch {
	case controller.IsLoading(key):
		return "loading"
	case controller.IsExpanded(key):
		return "open"
	case controller.IsLoaded(key):
		return "closed (loaded)"
	default:
		return "closed"
	}
}

func describe(node *domain.TreeNode) []string {
	switch meta := node.Metadata.(type) {
	case services.FileEntry:
		lines := []string{}
		if !meta.IsDir {
			lines = append(lines, fmt.Sprintf("Size    : %s", formatSize(meta.SizeBytes)))
		}
		return append(lines, fmt.Sprintf("Modified: %s", formatTime(meta.ModTime)))
	case services.CatalogEntry:
		lines := []string{fmt.Sprintf("Registry: %s", meta.Registry)}
		if meta.PackageType != "" {
			lines = append(lines, fmt.Sprintf("Package : %s", meta.PackageType))
		}
		if meta.Artifact != "" {
			lines = append(lines, fmt.Sprintf("Artifact: %s", meta.Artifact))
		}
		if meta.Version != "" {
			lines = append(lines, fmt.Sprintf("Version : %s", meta.Version))
		}
		if meta.Digest != "" {
			lines = append(lines, fmt.Sprintf("Digest  : %s", meta.Digest))
		}
		if meta.OSArch != "" {
			lines = append(lines, fmt.Sprintf("OS/Arch : %s", meta.OSArch))
		}
		if meta.Size > 0 {
			lines = append(lines, fmt.Sprintf("Size    : %s", formatSize(meta.Size)))
		}
		if meta.Entity == services.EntityArtifact {
			lines = append(lines, fmt.Sprintf("Pulls   : %d", meta.Downloads))
		}
		if meta.Children > 0 {
			lines = append(lines, fmt.Sprintf("Children: %d", meta.Children))
		}
		if meta.Description != "" && meta.Entity == services.EntityRegistry {
			lines = append(lines, "", meta.Description)
		}
		return append(lines, fmt.Sprintf("Updated : %s", formatTime(meta.UpdatedAt)))
	case error:
		return []string{meta.Error()}
	case nil:
		return nil
	default:
		return []string{fmt.Sprintf("%v", meta)}
	}
}

func renderHelpView(model Model, styles uiStyles) string {
	lines := []string{styles.headerStyle.Render("regtree help"), ""}
	lines = append(lines, styles.headerStyle.Render("Tree"))
	lines = append(lines, "enter toggles a folder or runs a row", "→ expands, ← collapses or jumps to the parent", "Load more rows fetch the next page")
	lines = append(lines, "", styles.headerStyle.Render("Search"))
	lines = append(lines, "/ edits the search row", "o cycles the sort order", "r refetches the open folder")
	lines = append(lines, "", styles.headerStyle.Render("Keys"))
	for _, binding := range model.keys.bindings() {
		keysLabel := strings.Join(binding.Keys(), ", ")
		lines = append(lines, fmt.Sprintf("%-18s %s", keysLabel, binding.Help().Desc))
	}
	lines = append(lines, "", "Press ? to close help")
	width := model.width
	if width <= 0 {
		width = 80
	}
	return styles.panelBorder.Width(maxInt(width-2, 10)).Render(strings.Join(lines, "\n"))
}

func (model Model) loadingCount() int {
	count := 0
	for _, row := range model.controller.Rows() {
		if row.TreeNodeType == domain.TreeNodeLoading || model.controller.IsLoading(row.Key()) {
			count++
		}
	}
	return count
}

func padLine(left, right string, width int) string {
	if width <= 0 {
		return left
	}
	space := width - lipgloss.Width(left) - lipgloss.Width(right)
	if space < 1 {
		return left + " " + right
	}
	return left + strings.Repeat(" ", space) + right
}

func splitPanels(width int) (int, int, bool) {
	if width < 80 {
		return width, 0, false
	}
	left := int(float64(width) * 0.6)
	if left < 40 {
		left = 40
	}
	right := width - left - 1
	if right < 30 {
		return width, 0, false
	}
	return left, right, true
}

func formatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format(time.RFC822) + " (" + humanize.Time(value) + ")"
}

func trimStatus(message string, width int) string {
	if width <= 0 {
		return message
	}
	max := width - 4
	if max <= 0 {
		return message
	}
	return runewidth.Truncate(message, max, "...")
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
