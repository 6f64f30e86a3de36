package cli

import (
	"os/signal"
	"syscall"

	"go-image-grader/internal/container"
	"go-image-grader/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port     string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(provider)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(cfg.LogLevel)
			gin.SetMode(gin.ReleaseMode)

			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.Serve(ctx)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider override: gemini or mock")
	return cmd
}
