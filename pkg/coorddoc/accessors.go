package coorddoc

import "strings"

const (
	headingCurrentWork = "Current Work"
	headingBlocked     = "Blocked Items"
	headingReviewQueue = "Code Review Queue"
	headingDecisions   = "Decisions"
)

// CurrentWorkRow is one row of the Current Work section's table.
type CurrentWorkRow struct {
	Agent string
	Task  string
	Since string
}

// CurrentWorkRows extracts the Current Work section's table rows. A
// missing section or a section with no table yields an empty slice.
func (d Document) CurrentWorkRows() []CurrentWorkRow {
	body, ok := d.Get(headingCurrentWork)
	if !ok {
		return nil
	}
	return parseTable(body)
}

// AppendCurrentWorkRow adds row to the Current Work table, creating the
// section and its header if absent, rather than requiring the caller to
// hand-assemble a markdown table.
func (d *Document) AppendCurrentWorkRow(row CurrentWorkRow) {
	rows := append(d.CurrentWorkRows(), row)
	d.UpdateSection(headingCurrentWork, renderTable(rows))
}

// BlockedItems extracts the Blocked Items section's bullet list.
func (d Document) BlockedItems() []string {
	body, _ := d.Get(headingBlocked)
	return bulletItems(body)
}

// AppendBlockedItem adds item as a new bullet under Blocked Items.
func (d *Document) AppendBlockedItem(item string) {
	d.UpdateSection(headingBlocked, renderBullets(append(d.BlockedItems(), item)))
}

// ReviewQueueItems extracts the Code Review Queue section's bullet list.
func (d Document) ReviewQueueItems() []string {
	body, _ := d.Get(headingReviewQueue)
	return bulletItems(body)
}

// AppendReviewQueueEntry adds item as a new bullet under Code Review Queue.
func (d *Document) AppendReviewQueueEntry(item string) {
	d.UpdateSection(headingReviewQueue, renderBullets(append(d.ReviewQueueItems(), item)))
}

// Decisions extracts the Decisions section's bullet list.
func (d Document) Decisions() []string {
	body, _ := d.Get(headingDecisions)
	return bulletItems(body)
}

// AppendDecision adds item as a new bullet under Decisions.
func (d *Document) AppendDecision(item string) {
	d.UpdateSection(headingDecisions, renderBullets(append(d.Decisions(), item)))
}

// bulletItems splits a section body into its "- " prefixed lines, with
// the prefix stripped. Lines that aren't bullets are ignored.
func bulletItems(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		items = append(items, strings.TrimPrefix(line, "- "))
	}
	return items
}

func renderBullets(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseTable reads a GitHub-flavored pipe table's data rows — the header
// and `---` separator rows are skipped — into CurrentWorkRow values. A
// row with fewer than three cells is padded with empty strings.
func parseTable(body string) []CurrentWorkRow {
	var rows []CurrentWorkRow
	lineNum := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		lineNum++
		if lineNum <= 1 || isTableSeparator(line) {
			continue // header row, or the "|---|---|---|" rule beneath it
		}
		cells := splitTableRow(line)
		row := CurrentWorkRow{}
		if len(cells) > 0 {
			row.Agent = cells[0]
		}
		if len(cells) > 1 {
			row.Task = cells[1]
		}
		if len(cells) > 2 {
			row.Since = cells[2]
		}
		rows = append(rows, row)
	}
	return rows
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isTableSeparator(line string) bool {
	return strings.Trim(line, "|-: ") == ""
}

func renderTable(rows []CurrentWorkRow) string {
	var b strings.Builder
	b.WriteString("| Agent | Task | Since |\n")
	b.WriteString("|---|---|---|\n")
	for _, r := range rows {
		b.WriteString("| ")
		b.WriteString(r.Agent)
		b.WriteString(" | ")
		b.WriteString(r.Task)
		b.WriteString(" | ")
		b.WriteString(r.Since)
		b.WriteString(" |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
