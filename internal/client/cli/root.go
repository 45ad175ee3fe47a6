package cli

import (
	"fmt"
	"io"
	"os"

	"flashcards/internal/client/api"
	"flashcards/internal/client/config"
	"flashcards/internal/client/services"

	"github.com/spf13/cobra"
)

// APIURL should be injected via ldflags. Default for dev.
var APIURL = config.DefaultAPIURL

// annotationPublic marks commands that do not need a session, so a 401 from
// them is a credential error rather than an expired token.
const annotationPublic = "public"

var public = map[string]string{annotationPublic: "true"}

// cli holds flag values and the wiring shared by one command tree.
type cli struct {
	buildURL string
	apiFlag  string
	cfgPath  string
	verbose  bool

	app *app
}

// Init sets the build-time API URL.
func Init(apiURL string) {
	if apiURL != "" {
		APIURL = apiURL
	}
}

// Execute runs the CLI with the process arguments and exits on failure.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes one command line and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	c := &cli{buildURL: APIURL}
	root := c.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer c.close()

	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	c.report(cmd, stderr, err)
	return 1
}

func (c *cli) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "flashcards",
		Short:             "Study flashcards from the terminal",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiFlag, "api", "", "API base URL (overrides config and FLASHCARDS_API_URL)")
	flags.StringVar(&c.cfgPath, "config", "", "config file (default ~/.flashcards.yaml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log requests")

	root.AddCommand(
		c.newRegisterCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newStatusCmd(),
		c.newDecksCmd(),
		c.newCardsCmd(),
		c.newPracticeCmd(),
		c.newBrowseCmd(),
	)
	return root
}

// report prints err for the user. A 401 from a command that needs a session
// clears the stored token.
func (c *cli) report(cmd *cobra.Command, w io.Writer, err error) {
	if api.IsUnauthorized(err) && (cmd == nil || cmd.Annotations[annotationPublic] != "true") {
		c.expireSession()
		fmt.Fprintln(w, "session expired, run login")
		return
	}
	if api.IsTransportError(err) {
		fmt.Fprintf(w, "Error: cannot reach %s: %v\n", c.baseURL(), err)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", services.Describe(err))
}
