package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/flowcheck/flow"
)

// ErrNoFindings is returned when Explain is called with a clean report.
var ErrNoFindings = errors.New("report has no findings to explain")

const systemPrompt = `You are an assistant that explains workflow
validation findings to automation engineers. For each finding, state
the likely cause and the concrete edit that fixes it. Be brief and do
not invent nodes that are not in the report.`

// Advisor generates remediation guidance for validation reports.
//
// Example usage:
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "")
//	adv := advice.NewAdvisor(m)
//	text, err := adv.Explain(ctx, report)
type Advisor struct {
	model ChatModel
}

// NewAdvisor creates an Advisor backed by the given chat model.
func NewAdvisor(model ChatModel) *Advisor {
	return &Advisor{model: model}
}

// Explain asks the model to explain the report's findings and suggest
// fixes. Returns ErrNoFindings if the report is clean.
func (a *Advisor) Explain(ctx context.Context, report *flow.Report) (string, error) {
	if report == nil || len(report.Findings) == 0 {
		return "", ErrNoFindings
	}

	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: buildPrompt(report)},
	}

	out, err := a.model.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("advice request failed: %w", err)
	}
	return out.Text, nil
}

// buildPrompt renders the report into a compact prompt. The rendered
// finding lines match the report's own text output so answers can quote
// them verbatim.
func buildPrompt(report *flow.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow %q failed validation with %d error(s) and %d warning(s):\n\n",
		report.Workflow, report.ErrorCount(), report.WarningCount())
	b.WriteString(report.Text())
	b.WriteString("\nExplain each finding and how to fix it.")
	return b.String()
}
