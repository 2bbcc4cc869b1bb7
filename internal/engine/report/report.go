// Package report renders a resolved plan as a human-readable markdown
// document with a mermaid dependency diagram.
package report

import (
	"fmt"
	"strings"

	"go.trai.ch/weft/internal/core/domain"
)

// Markdown renders the full describe document for one plan: a mermaid graph
// of the step dependencies followed by a section per step with its resolved
// output, inputs, parameters, and assembled command.
func Markdown(plan *domain.Plan) string {
	var sb strings.Builder

	title := "Build plan"
	if plan.Profile != "" {
		title += ": " + plan.Profile
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	sb.WriteString("## Dependency graph\n\n")
	sb.WriteString(Mermaid(plan))
	sb.WriteString("\n## Steps\n\n")

	for _, rs := range plan.Steps {
		writeStep(&sb, rs)
	}

	return sb.String()
}

// Mermaid renders the plan's dependency edges as a fenced mermaid block.
// Steps without edges still appear as isolated nodes.
func Mermaid(plan *domain.Plan) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\ngraph TD\n")

	for _, rs := range plan.Steps {
		hasEdge := false
		for _, req := range rs.Requires {
			if plan.Contains(req) {
				fmt.Fprintf(&sb, "    %s --> %s\n", req.String(), rs.Name.String())
				hasEdge = true
			}
		}
		if !hasEdge && len(plan.Steps) > 0 && !hasDependents(plan, rs.Name) {
			fmt.Fprintf(&sb, "    %s\n", rs.Name.String())
		}
	}

	sb.WriteString("```\n")
	return sb.String()
}

func hasDependents(plan *domain.Plan, name domain.InternedString) bool {
	for _, rs := range plan.Steps {
		for _, req := range rs.Requires {
			if req == name {
				return true
			}
		}
	}
	return false
}

func writeStep(sb *strings.Builder, rs *domain.ResolvedStep) {
	fmt.Fprintf(sb, "### %s\n\n", rs.Name.String())

	if rs.Err != nil {
		fmt.Fprintf(sb, "**Resolution failed:** %s\n\n", rs.Err.Error())
		return
	}

	fmt.Fprintf(sb, "- Output: `%s`\n", rs.Output)
	if len(rs.Requires) > 0 {
		names := make([]string, len(rs.Requires))
		for i, req := range rs.Requires {
			names[i] = req.String()
		}
		fmt.Fprintf(sb, "- Requires: %s\n", strings.Join(names, ", "))
	}
	for _, input := range rs.Inputs {
		fmt.Fprintf(sb, "- Input: `%s`\n", input)
	}
	if rs.ParameterString != "" {
		fmt.Fprintf(sb, "- Parameters: `%s`\n", rs.ParameterString)
	}

	fmt.Fprintf(sb, "\n```sh\n%s\n```\n\n", rs.Command)
}
