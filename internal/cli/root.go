package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/actorrun/internal/logging"
)

var (
	flagServer    string
	flagAPIKey    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client

	// prompter answers interactive questions. Tests replace it.
	prompter PromptDriver = surveyDriver{}
)

// defaultServer returns the default server URL, checking ACTORRUN_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("ACTORRUN_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the actorrun CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "actorrun",
		Short: "ActorRun: run Apify actors from their input schemas",
		Long: `actorrun lists your Apify actors, shows the form generated from an actor's
input schema, and runs actors through an ActorRun server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, resolveToken(flagAPIKey), logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "ActorRun server URL (or ACTORRUN_SERVER env)")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Apify API key (default: ACTORRUN_TOKEN, APIFY_TOKEN, then stored credentials)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newActorsCmd(),
		newSchemaCmd(),
		newPreviewCmd(),
		newRunCmd(),
		newRunsCmd(),
	)

	return root
}
