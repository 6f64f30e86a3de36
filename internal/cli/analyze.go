package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go-image-grader/internal/config"
	"go-image-grader/internal/container"
	apperrors "go-image-grader/internal/errors"
	"go-image-grader/internal/factory"
	"go-image-grader/internal/logger"
	"go-image-grader/internal/observer"
	"go-image-grader/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type analyzeOptions struct {
	format   string
	provider string
	noTUI    bool
	verbose  bool
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze the images of a web page",
		Long:  "Submit a page URL for analysis and print the report once it is ready.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", string(factory.FormatText), "output format: text, markdown, json or html")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "AI provider override: gemini or mock")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "disable the progress spinner")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	return cmd
}

func runAnalyze(cmd *cobra.Command, pageURL string, opts analyzeOptions) error {
	format, err := factory.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.provider)
	if err != nil {
		return err
	}
	configureLogging(cmd.ErrOrStderr(), cfg, opts.verbose)
	gin.SetMode(gin.ReleaseMode)

	c, err := container.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	renderer, err := c.Renderers().CreateRenderer(format)
	if err != nil {
		return err
	}

	holder, _, err := c.Sessions().GetOrCreate("")
	if err != nil {
		return err
	}

	updates := make(chan observer.StateEvent, 16)
	c.Publisher().Subscribe(observer.ObserverFunc{
		Name: "cli_progress",
		Fn: func(_ context.Context, e observer.StateEvent) {
			if e.SessionID != holder.ID() {
				return
			}
			select {
			case updates <- e:
			default:
			}
		},
	})

	gen, err := holder.Submit(pageURL)
	if err != nil {
		return errors.New(apperrors.UserMessage(err, apperrors.MsgInvalidURL))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	var st session.State
	if !opts.noTUI && isTerminal(cmd.OutOrStdout()) {
		st, err = waitWithSpinner(ctx, cmd.ErrOrStderr(), holder, gen, updates)
	} else {
		st, err = holder.Wait(ctx, gen)
	}
	if err != nil {
		return err
	}

	if st.Status != session.StatusSuccess || st.Report == nil {
		msg := st.Message
		if msg == "" {
			msg = apperrors.MsgAnalysisUnavailable
		}
		return errors.New(msg)
	}
	return renderer.Render(cmd.OutOrStdout(), pageURL, st.Report)
}

func waitWithSpinner(ctx context.Context, out io.Writer, holder *session.Holder, gen uint64, updates <-chan observer.StateEvent) (session.State, error) {
	p := tea.NewProgram(newProgressModel(holder.State().URL, updates), tea.WithOutput(out), tea.WithContext(ctx))

	go func() {
		st, err := holder.Wait(ctx, gen)
		p.Send(finishedMsg{state: st, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return holder.State(), ctx.Err()
		}
		return session.State{}, fmt.Errorf("TUI error: %w", err)
	}

	result := final.(progressModel)
	if result.cancelled {
		return session.State{}, errors.New("cancelled")
	}
	return result.state, result.err
}

func loadConfig(provider string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if provider != "" {
		cfg.AIProvider = provider
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureLogging keeps logs off the terminal unless asked for.
func configureLogging(w io.Writer, cfg *config.Config, verbose bool) {
	if !verbose {
		logger.SetOutput(io.Discard)
		return
	}
	logger.SetOutput(w)
	logger.SetLevel(cfg.LogLevel)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
