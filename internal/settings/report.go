package settings

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Render renders the two report tables accumulated in the run's
// built-ins into aligned, bordered text tables for the final build log:
// one row per action, one row per stage.
func Render(b BuiltIns) (actionsTable, stagesTable string) {
	at := table.NewWriter()
	at.AppendHeader(table.Row{"Stage", "Index", "Action", "Result"})
	for _, r := range b.ActionReport {
		at.AppendRow(table.Row{r.StageName, r.ActionIndex, r.Detail, passFailCell(r.Pass)})
	}
	actionsTable = at.Render()

	st := table.NewWriter()
	st.AppendHeader(table.Row{"Stage", "Result", "Detail"})
	for _, r := range b.StageReport {
		st.AppendRow(table.Row{r.Name, passFailCell(r.Pass), r.Detail})
	}
	stagesTable = st.Render()

	return actionsTable, stagesTable
}

func passFailCell(ok bool) string {
	if ok {
		return passStyle.Render("PASS")
	}
	return failStyle.Render("FAIL")
}
