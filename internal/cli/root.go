package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/2ykwang/mac-maintain-go/internal/engine"
	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/userconfig"
)

// App holds the state shared by every subcommand of one invocation.
type App struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// Build creates the engine once the user config is loaded.
	Build func(user *userconfig.UserConfig) (*engine.Engine, error)
	// Interactive enables the live progress line on ErrOut.
	Interactive bool

	debug      bool
	configPath string
	user       *userconfig.UserConfig
	engine     *engine.Engine
	reader     *bufio.Reader
}

func NewApp() *App {
	fd := os.Stderr.Fd()
	return &App{
		In:          os.Stdin,
		Out:         os.Stdout,
		ErrOut:      os.Stderr,
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		Build: func(user *userconfig.UserConfig) (*engine.Engine, error) {
			return engine.Build(engine.Setup{User: user})
		},
	}
}

// Execute runs the command line, cancelling in-flight work on SIGINT or SIGTERM.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app := NewApp()
	defer app.teardown()
	return NewRootCmd(app, version).ExecuteContext(ctx)
}

func NewRootCmd(app *App, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "mac-maintain",
		Short:         "Scan and clean macOS caches, logs and application leftovers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.teardown()
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.ErrOut)
	root.SetVersionTemplate("mac-maintain {{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().BoolVar(&app.debug, "debug", false, "Write debug logs to "+logger.Path())
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "Path to config file (default ~/.config/mac-maintain/config.yaml)")

	root.AddCommand(
		newCategoriesCmd(app),
		newScanCmd(app),
		newCleanCmd(app),
		newLeftoversCmd(app),
	)
	return root
}

func (a *App) setup() error {
	if err := logger.Init(a.debug); err != nil {
		fmt.Fprintf(a.ErrOut, "Warning: logging disabled: %v\n", err)
	}

	var (
		user *userconfig.UserConfig
		err  error
	)
	if a.configPath != "" {
		user, err = userconfig.LoadFrom(a.configPath)
	} else {
		user, err = userconfig.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.user = user

	e, err := a.Build(user)
	if err != nil {
		return err
	}
	a.engine = e
	logger.Debug("engine ready", "categories", len(e.Catalog()))
	return nil
}

func (a *App) teardown() {
	if a.engine != nil {
		a.engine.Close()
		a.engine = nil
	}
	logger.Close()
}

// confirm asks a yes/no question on the App's input. Anything but y/yes is no.
func (a *App) confirm(prompt string) bool {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.In)
	}
	fmt.Fprintf(a.Out, "%s [y/N]: ", prompt)
	input, _ := a.reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}
