package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/doeshing/promptmate/internal/application/session"
	"github.com/doeshing/promptmate/internal/domain"
)

func renderIntent(out io.Writer, r domain.IntentResult) {
	fmt.Fprintf(out, "Goal:         %s\n", r.CognitiveGoal)
	fmt.Fprintf(out, "Specificity:  %s\n", r.Specificity)
	fmt.Fprintf(out, "Completeness: %s\n", r.Completeness)
	fmt.Fprintf(out, "Entities:     %s\n", joinOrDash(r.PrimaryEntities))
	fmt.Fprintf(out, "Constraints:  %s\n", joinOrDash(r.Constraints))
	fmt.Fprintf(out, "Confidence:   %.2f (%s)\n", r.Confidence, r.Source)
}

func renderQuestions(out io.Writer, qs []domain.QuestionItem) {
	if len(qs) == 0 {
		fmt.Fprintln(out, "No clarifying questions needed.")
		return
	}
	for i, q := range qs {
		fmt.Fprintf(out, "%d. [P%d] %s\n", i+1, q.Priority, q.Text)
		if q.Rationale != "" {
			fmt.Fprintf(out, "   why: %s\n", q.Rationale)
		}
		if len(q.Options) > 0 {
			fmt.Fprintf(out, "   options: %s\n", strings.Join(q.Options, " | "))
		}
		if q.Default != nil {
			fmt.Fprintf(out, "   default: %s\n", *q.Default)
		}
	}
}

func renderRoute(out io.Writer, r domain.Route) {
	fmt.Fprintf(out, "Provider:    %s\n", r.Provider)
	fmt.Fprintf(out, "Model:       %s\n", r.Model)
	fmt.Fprintf(out, "Temperature: %.1f\n", r.Temperature)
	if r.Substituted {
		fmt.Fprintln(out, "Note: strategy provider unavailable, substituted the closest model")
	}
}

func renderGeneration(out io.Writer, res session.GenerateResult) {
	fmt.Fprintln(out, res.Response.Content)
	fmt.Fprintf(out, "\n-- %s/%s, %d tokens, history %s\n", res.Route.Provider, res.History.ModelUsed, res.Response.TokensUsed, res.History.ID)
}

func renderMemories(out io.Writer, hits []domain.SimilarConversation) {
	if len(hits) == 0 {
		fmt.Fprintln(out, "No memories found.")
		return
	}
	for _, h := range hits {
		fmt.Fprintf(out, "%.3f | %s | %s\n", h.Similarity, h.CreatedAt.Format(domain.TimestampFormat), oneLine(h.Content, 120))
	}
}

func renderSummary(out io.Writer, sum domain.SessionSummary, s *domain.Session) {
	fmt.Fprintf(out, "Session:     %s\n", sum.SessionID)
	fmt.Fprintf(out, "Created:     %s\n", sum.CreatedAt.Format(domain.TimestampFormat))
	fmt.Fprintf(out, "Updated:     %s\n", sum.UpdatedAt.Format(domain.TimestampFormat))
	fmt.Fprintf(out, "Role:        %s\n", orDash(sum.Role))
	fmt.Fprintf(out, "Task:        %s\n", orDash(sum.Task))
	fmt.Fprintf(out, "Intents:     %d\n", sum.IntentsCount)
	fmt.Fprintf(out, "Generations: %d\n", sum.PromptHistoryCount)
	fmt.Fprintf(out, "Feedback:    %d\n", sum.FeedbacksCount)

	if len(s.Context) > 0 {
		fmt.Fprintln(out, "\nContext:")
		keys := make([]string, 0, len(s.Context))
		for k := range s.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, " - %s: %s\n", k, s.Context[k])
		}
	}
	if len(s.Constraints) > 0 {
		fmt.Fprintln(out, "\nConstraints:")
		for _, c := range s.Constraints {
			fmt.Fprintf(out, " - %s\n", c)
		}
	}
	if len(sum.UserPreferences) > 0 {
		fmt.Fprintln(out, "\nPreferences:")
		keys := make([]string, 0, len(sum.UserPreferences))
		for k := range sum.UserPreferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, " - %s: %v\n", k, sum.UserPreferences[k])
		}
	}
}

func renderHistory(out io.Writer, records []domain.PromptHistory, full bool) {
	for _, rec := range records {
		fmt.Fprintf(out, "%s | %s | %s/%s | %d tokens | %s\n",
			rec.CreatedAt.Format(domain.TimestampFormat),
			rec.ID,
			rec.Provider,
			rec.ModelUsed,
			rec.TokensUsed,
			oneLine(rec.OriginalPrompt, 60))
		if full {
			fmt.Fprintf(out, "\n%s\n\n---\n%s\n\n", rec.SynthesizedPrompt, rec.Response)
		}
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
