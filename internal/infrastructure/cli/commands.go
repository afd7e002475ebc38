package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptmate/internal/app"
	"github.com/doeshing/promptmate/internal/application/routing"
	"github.com/doeshing/promptmate/internal/application/session"
	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/ids"
)

// sessionFlags are shared by every command that drives a session.
type sessionFlags struct {
	sessionID string
	role      string
	context   []string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.sessionID, "session", "s", "", "Continue an existing session")
	cmd.Flags().StringVar(&f.role, "role", "", "Role the model should adopt")
	cmd.Flags().StringArrayVar(&f.context, "context", nil, "Context entry key=value (repeatable)")
}

// open loads or creates the session and applies role and context flags.
func (f *sessionFlags) open(ctx context.Context, container *app.Container, errOut io.Writer) (*session.Manager, error) {
	entries, err := parseAssignments(f.context)
	if err != nil {
		return nil, err
	}
	id := f.sessionID
	if id == "" {
		id = ids.NewSession()
		fmt.Fprintf(errOut, "session: %s\n", id)
	}
	// One CLI session is one conversation.
	m, err := container.Sessions.Open(ctx, session.OpenRequest{
		SessionID:      id,
		UserID:         container.Config.Entitlement.UserID,
		ConversationID: id,
	})
	if err != nil {
		return nil, err
	}
	if f.role != "" {
		if err := m.UpdateRole(ctx, f.role); err != nil {
			return nil, err
		}
	}
	if len(entries) > 0 {
		if err := m.UpdateContext(ctx, entries); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newParseCommand(container *app.Container) *cobra.Command {
	var (
		flags sessionFlags
		batch bool
	)
	cmd := &cobra.Command{
		Use:   "parse <request>",
		Short: "Extract the intent of a request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if batch {
				for i, res := range container.Parser.BatchParse(ctx, args) {
					fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", args[i])
					renderIntent(cmd.OutOrStdout(), res)
				}
				return nil
			}
			m, err := flags.open(ctx, container, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := m.ParseUserInput(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			renderIntent(cmd.OutOrStdout(), res)
			if res.NeedsClarification(container.Router.Settings().IntentThreshold) {
				fmt.Fprintln(cmd.OutOrStdout(), "\nConfidence is low; run `promptmate questions` to add context.")
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&batch, "batch", false, "Parse each argument as a separate request, without a session")
	return cmd
}

func newQuestionsCommand(container *app.Container) *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "questions [request]",
		Short: "Generate clarifying questions",
		Long:  "Generate clarifying questions for a new request, or for the latest request of --session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := flags.open(ctx, container, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if len(args) > 0 {
				if _, err := m.ParseUserInput(ctx, strings.Join(args, " ")); err != nil {
					return err
				}
			}
			qs, err := m.GenerateQuestions(ctx, nil)
			if err != nil {
				return err
			}
			renderQuestions(cmd.OutOrStdout(), qs)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newSynthesizeCommand(container *app.Container) *cobra.Command {
	var (
		flags   sessionFlags
		format  string
		level   string
		useRAG  bool
		copyOut bool
	)
	cmd := &cobra.Command{
		Use:   "synthesize [request]",
		Short: "Build a structured prompt without calling a model",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := flags.open(ctx, container, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			input := strings.Join(args, " ")
			if input != "" {
				if _, err := m.ParseUserInput(ctx, input); err != nil {
					return err
				}
			}
			prompt, err := m.SynthesizePrompt(ctx, session.SynthesizeRequest{
				UserInput:    input,
				OutputFormat: format,
				Level:        outputLevel(container, level),
				UseRAG:       useRAG,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			if copyOut {
				if err := NewClipboard().Copy(prompt); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "clipboard: %v\n", err)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "Output format instruction that replaces the default")
	cmd.Flags().StringVar(&level, "level", "", "Answer specificity (짧음|간결|보통|구체적|매우 구체적)")
	cmd.Flags().BoolVar(&useRAG, "rag", false, "Attach related conversation history")
	cmd.Flags().BoolVarP(&copyOut, "copy", "c", false, "Copy the prompt to the clipboard")
	return cmd
}

func newAskCommand(container *app.Container) *cobra.Command {
	var (
		flags       sessionFlags
		answers     []string
		interactive bool
		quality     string
		model       string
		provider    string
		internet    bool
		searchQuery string
		level       string
		format      string
		maxTokens   int
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Run the full pipeline and generate an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			out := cmd.OutOrStdout()
			input := strings.Join(args, " ")

			m, err := flags.open(ctx, container, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			intent, err := m.ParseUserInput(ctx, input)
			if err != nil {
				return err
			}

			given, err := parseAssignments(answers)
			if err != nil {
				return err
			}
			if len(given) > 0 {
				if err := m.UpdateContext(ctx, given); err != nil {
					return err
				}
			}
			unclear := intent.NeedsClarification(container.Router.Settings().IntentThreshold)
			if interactive || (len(given) == 0 && unclear && isTerminal(cmd.InOrStdin())) {
				if err := elicitInteractively(ctx, container, m, intent, NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())); err != nil {
					return err
				}
			}

			prompt, err := m.SynthesizePrompt(ctx, session.SynthesizeRequest{
				UserInput:    input,
				Intent:       &intent,
				OutputFormat: format,
				Level:        outputLevel(container, level),
				UseRAG:       true,
			})
			if err != nil {
				return err
			}

			q := domain.QualityLevel(quality)
			if quality == "" {
				q = container.Router.CalculateComplexity(routing.NewComplexitySignals(prompt))
			}

			spin := NewSpinner(cmd.ErrOrStderr(), "generating")
			spin.Start()
			res, err := m.Generate(ctx, session.GenerateRequest{
				UserInput:         input,
				Prompt:            prompt,
				Quality:           q,
				Entitlement:       container.Entitlement(ctx),
				PreferredModel:    model,
				PreferredProvider: provider,
				UseInternet:       internet,
				SearchQuery:       searchQuery,
				MaxTokens:         maxTokens,
			})
			spin.Stop()
			if err != nil {
				return err
			}
			renderGeneration(out, res)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "Context answer key=value (repeatable); skips the clarifying questions")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Always ask clarifying questions, even when stdin is not a terminal")
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Quality tier (low|balanced|high); estimated from the prompt when empty")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Preferred model")
	cmd.Flags().StringVar(&provider, "provider", "", "Preferred provider for --model")
	cmd.Flags().BoolVar(&internet, "internet", false, "Augment the prompt with a live web search")
	cmd.Flags().StringVar(&searchQuery, "search", "", "Web search query (defaults to the request)")
	cmd.Flags().StringVar(&level, "level", "", "Answer specificity (짧음|간결|보통|구체적|매우 구체적)")
	cmd.Flags().StringVar(&format, "format", "", "Output format instruction")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Max tokens of the reply")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall request timeout")
	return cmd
}

// elicitInteractively asks the generated questions, then one round of
// follow-ups built from the answers.
func elicitInteractively(ctx context.Context, container *app.Container, m *session.Manager, intent domain.IntentResult, p *Prompter) error {
	qs, err := m.GenerateQuestions(ctx, &intent)
	if err != nil {
		return err
	}
	answered, err := askAll(ctx, m, qs, p)
	if err != nil || len(answered) == 0 {
		return err
	}
	followUps := container.Elicitor.AdaptiveFollowUp(ctx, qs, answered, intent)
	_, err = askAll(ctx, m, followUps, p)
	return err
}

func askAll(ctx context.Context, m *session.Manager, qs []domain.QuestionItem, p *Prompter) ([]domain.QuestionAnswer, error) {
	var answered []domain.QuestionAnswer
	for _, q := range qs {
		answer, err := p.Ask(q)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return answered, nil
			}
			return answered, err
		}
		if answer == "" {
			continue
		}
		if err := m.AnswerQuestion(ctx, q.Text, answer); err != nil {
			return answered, err
		}
		answered = append(answered, domain.QuestionAnswer{Question: q.Text, Answer: answer})
	}
	return answered, nil
}

func outputLevel(container *app.Container, flag string) domain.SpecificityLevel {
	if l := domain.SpecificityLevel(flag); l.Valid() {
		return l
	}
	if flag != "" {
		fmt.Fprintf(os.Stderr, "unknown level %q, using %s\n", flag, container.Config.GetOutputLevel())
	}
	return container.Config.GetOutputLevel()
}

func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
