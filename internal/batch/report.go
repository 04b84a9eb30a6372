package batch

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sitewatcher/internal/policy"
)

// NamespaceReport summarizes policy reconciliation of one namespace.
type NamespaceReport struct {
	Namespace string
	Matched   int
	Applied   int
	Deleted   int
}

// Report is the outcome of one batch.
type Report struct {
	BatchID         string
	ResourceType    string
	StartVersion    string
	ResourceVersion string
	StagingDir      string

	Updates   int
	Deletes   int
	Conflicts int

	// AppliedFiles counts rendered files applied wholesale.
	AppliedFiles int
	// Namespaces holds per-namespace policy results, sorted by namespace.
	Namespaces []NamespaceReport
	// Cascaded lists the sites whose dependents were deleted.
	Cascaded []string

	Duration time.Duration
}

// AddPlan records the per-namespace results of plan.
func (r *Report) AddPlan(plan *policy.Plan) {
	for _, ns := range plan.SortedNamespaces() {
		p := plan.Namespaces[ns]
		r.Namespaces = append(r.Namespaces, NamespaceReport{
			Namespace: ns,
			Matched:   len(p.Matched),
			Applied:   len(p.Apply),
			Deleted:   len(p.Delete),
		})
	}
	sort.Slice(r.Namespaces, func(i, j int) bool {
		return r.Namespaces[i].Namespace < r.Namespaces[j].Namespace
	})
}

// Render writes the report as tables to w.
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Batch %s", r.BatchID)
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("FIELD"), text.FgHiCyan.Sprint("VALUE")})
	t.AppendRows([]table.Row{
		{"Resource type", r.ResourceType},
		{"Resource version", fmt.Sprintf("%s -> %s", orDash(r.StartVersion), orDash(r.ResourceVersion))},
		{"Updates staged", r.Updates},
		{"Deletes staged", r.Deletes},
		{"Conflicts dropped", r.Conflicts},
		{"Files applied", r.AppliedFiles},
		{"Sites cascaded", orDash(strings.Join(r.Cascaded, ", "))},
		{"Duration", r.Duration.Round(time.Millisecond)},
	})
	t.Render()

	if len(r.Namespaces) == 0 {
		return
	}

	nt := table.NewWriter()
	nt.SetOutputMirror(w)
	nt.SetStyle(table.StyleRounded)
	nt.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAMESPACE"),
		text.FgHiCyan.Sprint("MATCHED"),
		text.FgHiCyan.Sprint("APPLIED"),
		text.FgHiCyan.Sprint("DELETED"),
	})
	var matched, applied, deleted int
	for _, ns := range r.Namespaces {
		nt.AppendRow(table.Row{ns.Namespace, ns.Matched, ns.Applied, ns.Deleted})
		matched += ns.Matched
		applied += ns.Applied
		deleted += ns.Deleted
	}
	nt.AppendFooter(table.Row{"Total", matched, applied, deleted})
	nt.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
