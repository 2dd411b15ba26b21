package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/courier/internal/config"
	courier "github.com/wesleyorama2/courier/internal/http"
	"github.com/wesleyorama2/courier/internal/output"
)

var version = "0.1.0"

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	profile  string
	provider string
	format   string
	debug    bool
	noColor  bool
	verbose  bool
}

// session is the per-invocation state built from the global options
type session struct {
	profile   *config.Profile
	provider  courier.Provider
	logger    *zap.Logger
	format    output.OutputFormat
	formatter output.FormatProvider
	noColor   bool
	verbose   bool
	out       io.Writer
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:     "courier",
		Short:   "A terminal HTTP client with pluggable transports",
		Version: version,
		Long: `Courier sends HTTP requests through one of two transports: the engine
provider built on net/http, or the wire provider that speaks HTTP/1.1 directly
over a socket. Responses can be buffered or streamed chunk by chunk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.profile, "profile", "P", "", "Profile file (.yaml, .yml or .json) with request defaults")
	flags.StringVar(&g.provider, "provider", "", "Transport provider: engine or wire (default: engine, falling back to wire)")
	flags.StringVarP(&g.format, "format", "f", "text", "Output format: text, json or yaml")
	flags.BoolVar(&g.debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose output")

	for _, method := range []string{
		courier.MethodGet, courier.MethodPost, courier.MethodPut, courier.MethodPatch,
		courier.MethodDelete, courier.MethodHead, courier.MethodOptions,
	} {
		cmd.AddCommand(newMethodCmd(g, method))
	}
	cmd.AddCommand(newStreamCmd(g))

	return cmd
}

// newSession loads the profile and builds the provider, logger and formatter
func newSession(cmd *cobra.Command, g *globalOptions) (*session, error) {
	profile := &config.Profile{}
	if g.profile != "" {
		loaded, err := config.LoadConfig(g.profile)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}
	if g.provider != "" {
		profile.Provider = g.provider
	}

	format, err := output.ParseFormat(g.format)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if g.debug {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}

	provider, err := profile.NewProvider()
	if err != nil {
		return nil, err
	}
	logger.Debug("provider selected", zap.String("provider", provider.Name()))

	out := cmd.OutOrStdout()
	noColor := g.noColor
	if f, ok := out.(*os.File); !ok || !output.ColorEnabled(noColor, f) {
		noColor = true
	}

	return &session{
		profile:   profile,
		provider:  provider,
		logger:    logger,
		format:    format,
		formatter: output.GetFormatter(format, g.verbose, noColor),
		noColor:   noColor,
		verbose:   g.verbose,
		out:       out,
	}, nil
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
