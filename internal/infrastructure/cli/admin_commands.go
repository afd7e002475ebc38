package cli

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/promptmate/internal/app"
	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/application/session"
	"github.com/doeshing/promptmate/internal/domain"
)

func newRouteCommand(container *app.Container) *cobra.Command {
	var (
		task     string
		quality  string
		plan     string
		model    string
		provider string
		allowed  []string
	)
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show which provider and model a request would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			ent := container.Entitlement(cmd.Context())
			if plan != "" {
				ent.PlanType = plan
				ent.Authenticated = plan != domain.PlanFree || ent.Authenticated
			}
			if len(allowed) > 0 {
				ent.AllowedModels = allowed
			}
			route, err := container.Router.Route(cmd.Context(), routing.RouteRequest{
				Task:              domain.TaskType(task),
				Quality:           domain.QualityLevel(quality),
				Entitlement:       ent,
				PreferredModel:    model,
				PreferredProvider: provider,
			})
			if err != nil {
				return err
			}
			renderRoute(cmd.OutOrStdout(), route)
			return nil
		},
	}
	cmd.Flags().StringVar(&task, "task", string(domain.TaskFinalGeneration), "Task type")
	cmd.Flags().StringVar(&quality, "quality", string(domain.QualityBalanced), "Quality tier (low|balanced|high)")
	cmd.Flags().StringVar(&plan, "plan", "", "Override plan type (free|basic|pro)")
	cmd.Flags().StringSliceVar(&allowed, "allow", nil, "Override allowed models")
	cmd.Flags().StringVar(&model, "model", "", "Preferred model")
	cmd.Flags().StringVar(&provider, "provider", "", "Preferred provider")
	return cmd
}

func newProvidersCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers with resolved credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			available := container.Router.AvailableProviders()
			for _, name := range []string{domain.ProviderOpenAI, domain.ProviderAnthropic, domain.ProviderGoogle, domain.ProviderPerplexity} {
				status := "missing key"
				if available[name] {
					status = "ready"
				}
				fmt.Fprintf(out, "%-11s %s\n", name, status)
				if p, ok := container.Registry.Get(name); ok {
					fmt.Fprintf(out, "            models: %s\n", strings.Join(p.AvailableModels(), ", "))
				}
			}
			if _, ok := container.Registry.Searcher(); ok {
				fmt.Fprintln(out, "\nweb search: enabled")
			} else {
				fmt.Fprintln(out, "\nweb search: disabled")
			}
			return nil
		},
	}
}

func newMemoryCommand(container *app.Container) *cobra.Command {
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Search or rebuild conversation memory",
	}

	var (
		topK      int
		asContext bool
		minSim    float64
	)
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find memories similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := container.Config.Entitlement.UserID
			query := strings.Join(args, " ")
			if asContext {
				fmt.Fprintln(cmd.OutOrStdout(), container.RAG.GetRelevantContext(cmd.Context(), userID, query, topK, minSim))
				return nil
			}
			hits, err := container.RAG.SearchSimilarConversations(cmd.Context(), userID, query, topK)
			if err != nil {
				return err
			}
			renderMemories(cmd.OutOrStdout(), hits)
			return nil
		},
	}
	searchCmd.Flags().IntVarP(&topK, "top-k", "k", domain.DefaultSearchTopK, "Number of results")
	searchCmd.Flags().BoolVar(&asContext, "context", false, "Print the prompt context block instead of raw hits")
	searchCmd.Flags().Float64Var(&minSim, "min-similarity", domain.DefaultRAGMinSimilarity, "Similarity floor for --context")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the vector index from stored memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := container.RAG.RebuildIndex(cmd.Context(), container.Config.Entitlement.UserID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d memories\n", n)
			return nil
		},
	}

	memoryCmd.AddCommand(searchCmd, rebuildCmd)
	return memoryCmd
}

func newSessionCommand(container *app.Container) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect sessions and leave feedback",
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openExisting(cmd, container, args[0])
			if err != nil {
				return err
			}
			sum, err := m.Summary(cmd.Context())
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), sum, m.Session())
			return nil
		},
	}

	var (
		sentiment string
		historyID string
	)
	feedbackCmd := &cobra.Command{
		Use:   "feedback <id> <text>",
		Short: "Record feedback on a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openExisting(cmd, container, args[0])
			if err != nil {
				return err
			}
			fb, err := m.AddFeedback(cmd.Context(), strings.Join(args[1:], " "), domain.Sentiment(sentiment), historyID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Feedback %s recorded (%s)\n", fb.ID, fb.Sentiment)
			return nil
		},
	}
	feedbackCmd.Flags().StringVar(&sentiment, "sentiment", string(domain.SentimentNeutral), "positive|neutral|negative")
	feedbackCmd.Flags().StringVar(&historyID, "history", "", "Prompt history id the feedback refers to")

	sessionCmd.AddCommand(showCmd, feedbackCmd)
	return sessionCmd
}

// openExisting loads a session and fails when it does not exist.
func openExisting(cmd *cobra.Command, container *app.Container, id string) (*session.Manager, error) {
	if _, err := container.Store.LoadSession(cmd.Context(), id); err != nil {
		return nil, err
	}
	return container.Sessions.Open(cmd.Context(), session.OpenRequest{SessionID: id})
}

func newHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect prompt history",
	}

	var (
		limit     int
		sessionID string
		match     string
		full      bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch := limit
			if match != "" {
				fetch = 0
			}
			records, err := container.Store.ListPromptHistory(cmd.Context(), sessionID, fetch)
			if err != nil {
				return err
			}
			if match != "" {
				if records, err = filterHistory(records, match, limit); err != nil {
					return err
				}
			}
			renderHistory(cmd.OutOrStdout(), records, full)
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show")
	listCmd.Flags().StringVar(&sessionID, "session", "", "Only entries of this session")
	listCmd.Flags().StringVar(&match, "match", "", "Glob the original request must match, e.g. '*투두*'")
	listCmd.Flags().BoolVar(&full, "full", false, "Print prompts and responses")

	historyCmd.AddCommand(listCmd)
	return historyCmd
}

// filterHistory keeps records whose original request matches pattern, newest
// first, up to limit.
func filterHistory(records []domain.PromptHistory, pattern string, limit int) ([]domain.PromptHistory, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid --match pattern: %w", err)
	}
	var out []domain.PromptHistory
	for _, rec := range records {
		if !g.Match(rec.OriginalPrompt) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func newInstructionsCommand(container *app.Container) *cobra.Command {
	instructionsCmd := &cobra.Command{
		Use:   "instructions",
		Short: "Manage standing custom instructions",
	}

	setCmd := &cobra.Command{
		Use:   "set <text>",
		Short: "Set and activate custom instructions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return container.Store.SetCustomInstructions(cmd.Context(), domain.CustomInstructions{
				UserID:       container.Config.Entitlement.UserID,
				Instructions: strings.Join(args, " "),
				Active:       true,
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show active custom instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ci, ok, err := container.Store.ActiveInstructions(cmd.Context(), container.Config.Entitlement.UserID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No active custom instructions")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ci.Instructions)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Deactivate custom instructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := container.Config.Entitlement.UserID
			ci, ok, err := container.Store.ActiveInstructions(cmd.Context(), userID)
			if err != nil || !ok {
				return err
			}
			ci.Active = false
			return container.Store.SetCustomInstructions(cmd.Context(), ci)
		},
	}

	instructionsCmd.AddCommand(setCmd, showCmd, clearCmd)
	return instructionsCmd
}

func newConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect PromptMate configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(container.Config)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), container.ConfigLoader.Path())
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := container.ConfigLoader.Load(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
			return nil
		},
	}

	configCmd.AddCommand(showCmd, pathCmd, validateCmd)
	return configCmd
}

func newDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose environment setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := container.Doctor.Run(cmd.Context())
			for _, check := range report.Checks {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s - %s\n", strings.ToUpper(string(check.Status)), check.Name, check.Details)
			}
			if err == nil && report.Failed() {
				err = fmt.Errorf("doctor found blocking problems")
			}
			return err
		},
	}
}
