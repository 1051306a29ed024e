// Package cli implements the smartscanon command line: canonicalize patterns
// and reactions, compare them, deduplicate rule files and fuzz the canonical
// form against random embeddings and atom orders.
package cli

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/smartscanon/internal/application/canonicalization"
	"github.com/turtacn/smartscanon/internal/application/rulebook"
	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/client"
	"github.com/turtacn/smartscanon/pkg/errors"
	dto "github.com/turtacn/smartscanon/pkg/types/canon"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ErrSilent marks failures that were already reported on stdout and only
// need a non-zero exit code: differing patterns, failed fuzz checks.
var ErrSilent = stdliberrors.New("silent failure")

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config  *config.Config
	Logger  logging.Logger
	Canon   canonicalization.Service
	Backend Backend
	Rules   rulebook.Service
	Out     *Printer
	Verbose bool
}

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "smartscanon",
		Short: "Canonicalize SMARTS patterns and reaction SMARTS",
		Long: "smartscanon rewrites SMARTS patterns into a canonical form, so two patterns\n" +
			"that match the same structures under the chosen embedding produce\n" +
			"the same text.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: SMARTSCANON_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", FormatText, "output format (text, json, yaml)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "show search details and debug logs")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "timeout for requests to --server")
	pf.StringVar(&opts.ServerAddr, "server", "", "canonicalize through this API server instead of locally")

	cmd.AddCommand(
		NewPatternCmd(),
		NewReactionCmd(),
		NewCompareCmd(),
		NewDedupeCmd(),
		NewFuzzCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// persistentPreRun initializes config, logger and services, then stores the
// CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	out, err := NewPrinter(cmd.OutOrStdout(), opts.OutputFormat, colorEnabled(cmd.OutOrStdout(), opts.NoColor))
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrEnv(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if opts.Verbose {
		cfg.Canon.Verbose = true
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)

	svc, err := canonicalization.NewService(cfg.Canon, canonicalization.Deps{Logger: logger})
	if err != nil {
		return err
	}

	var backend Backend = localBackend{svc: svc}
	if opts.ServerAddr != "" {
		c, err := client.NewClient(client.WithBaseURL(opts.ServerAddr), client.WithTimeout(opts.Timeout))
		if err != nil {
			return err
		}
		backend = c
	}

	cliCtx := &CLIContext{
		Config:  cfg,
		Logger:  logger,
		Canon:   svc,
		Backend: backend,
		Rules:   rulebook.NewService(rulebook.Deps{Canon: svc, Logger: logger}),
		Out:     out,
		Verbose: opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initLogger creates a console logger on stderr so stdout stays parseable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = logging.LevelDebug
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !stdliberrors.Is(err, ErrSilent) {
			PrintError(rootCmd, err)
		}
		return 1
	}
	return 0
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// Backend canonicalizes through the local engine or a remote API server.
// *client.Client satisfies it directly.
type Backend interface {
	CanonicalizePattern(ctx context.Context, pattern string, opts dto.Options) (*dto.PatternResponse, error)
	CanonicalizeReaction(ctx context.Context, reaction string, opts dto.Options) (*dto.ReactionResponse, error)
	Compare(ctx context.Context, a, b string, opts dto.Options) (*dto.CompareResponse, error)
	Batch(ctx context.Context, req *dto.BatchRequest) (*dto.BatchResponse, error)
}

var _ Backend = (*client.Client)(nil)

type localBackend struct {
	svc canonicalization.Service
}

func (l localBackend) CanonicalizePattern(ctx context.Context, pattern string, opts dto.Options) (*dto.PatternResponse, error) {
	return l.svc.CanonicalizePattern(ctx, &dto.PatternRequest{Pattern: pattern, Options: opts})
}

func (l localBackend) CanonicalizeReaction(ctx context.Context, reaction string, opts dto.Options) (*dto.ReactionResponse, error) {
	return l.svc.CanonicalizeReaction(ctx, &dto.ReactionRequest{Reaction: reaction, Options: opts})
}

func (l localBackend) Compare(ctx context.Context, a, b string, opts dto.Options) (*dto.CompareResponse, error) {
	return l.svc.Compare(ctx, &dto.CompareRequest{A: a, B: b, Options: opts})
}

func (l localBackend) Batch(ctx context.Context, req *dto.BatchRequest) (*dto.BatchResponse, error) {
	return l.svc.CanonicalizeBatch(ctx, req)
}

//Personal.AI order the ending
