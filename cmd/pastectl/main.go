package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hashpaste/internal/pasteapi"
)

// cli carries the global flags and the streams every command writes to.
type cli struct {
	server  string
	theme   string
	fade    time.Duration
	timeout time.Duration
	verbose bool

	stdin          io.Reader
	stdout, stderr io.Writer
	logger         *zap.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "pastectl",
		Short: "Submit and view hashpaste pastes from the terminal",
		Long: `pastectl talks to a hashpaste server.

  pastectl submit main.go --lang go
  echo hi | pastectl submit
  pastectl load http://localhost:3535/#AbC123xY
  pastectl raw AbC123xY > out.txt`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !c.verbose {
				return nil
			}
			config := zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			config.OutputPaths = []string{"stderr"}
			l, err := config.Build()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c.logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	server := os.Getenv("PASTECTL_SERVER")
	if server == "" {
		server = pasteapi.DefaultBaseURL
	}
	root.PersistentFlags().StringVarP(&c.server, "server", "s", server, "hashpaste base URL (or set PASTECTL_SERVER)")
	root.PersistentFlags().StringVar(&c.theme, "theme", "dark", "highlighting theme (dark or light)")
	root.PersistentFlags().DurationVar(&c.fade, "fade", 0, "fade duration between panels")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", pasteapi.DefaultTimeout, "HTTP timeout (0 disables)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.submitCmd(), c.loadCmd(), c.rawCmd(), c.langsCmd())
	return root
}

func (c *cli) api() *pasteapi.Client {
	return pasteapi.New(pasteapi.WithBaseURL(c.server), pasteapi.WithTimeout(c.timeout))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errAlerted) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
