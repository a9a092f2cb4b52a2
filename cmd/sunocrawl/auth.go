package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sunocrawl/pkg/auth"
	"sunocrawl/pkg/capture"
	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/ui"
)

var (
	captureFromStdin bool
	clearYes         bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Suno credentials",
	Long: `Manage the stored credential tuple (bearer token, browser token and
device id).

Credentials are stored using the configured backend:
  - file: plain JSON file (default, auth.json)
  - encrypted: AES-GCM file keyed by SUNOCRAWL_PASSPHRASE
  - keyring: the system keychain

Never share these tokens: they grant full access to your account.`,
}

// captureCmd represents the auth capture command
var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Store credentials from a copied cURL command",
	Long: `Store the credentials carried by a 'Copy as cURL (bash)' command.

The clipboard is used when it holds a cURL command; otherwise paste the
command and finish with an empty line.`,
	Example: `  # From the clipboard, or an interactive paste
  sunocrawl auth capture

  # From a file
  sunocrawl auth capture --stdin < request.sh`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

// authShowCmd represents the auth show command
var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored credentials, masked",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

// clearCmd represents the auth clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runAuthClear,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(captureCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(clearCmd)

	captureCmd.Flags().BoolVar(&captureFromStdin, "stdin", false, "read the command from stdin, ignoring the clipboard")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func runCapture(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()
	store, err := auth.NewStore(&cfg.Credentials)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	var source capture.Source
	if !captureFromStdin && capture.ClipboardAvailable() {
		source = capture.ClipboardSource{}
	}
	if stdinIsTerminal() && !ui.IsQuietMode() {
		auth.ShowCaptureGuide(ui.Output())
	}

	text, err := capture.ReadInitial(source, bufio.NewReader(os.Stdin), ui.Output(), log)
	if err != nil {
		return err
	}
	tuple, err := capture.Apply(store, text, log)
	if err != nil {
		if errors.Is(err, capture.ErrNotCurl) {
			ui.PrintError("Input did not start with 'curl'")
		}
		return err
	}

	printTuple(tuple)
	ui.PrintSuccess("Credentials stored")
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	store, err := auth.NewStore(&cfg.Credentials)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	tuple, err := store.Load()
	if errors.Is(err, auth.ErrCredentialsNotFound) {
		ui.PrintInfo("No stored credentials", "use 'sunocrawl auth capture' to add them")
		return nil
	}
	if err != nil {
		return err
	}

	printTuple(tuple)
	if v, err := store.Version(); err == nil && !v.IsZero() {
		fmt.Fprintf(ui.Output(), "   Stored:        %s\n", v.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	store, err := auth.NewStore(&cfg.Credentials)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	if !clearYes && stdinIsTerminal() {
		fmt.Fprint(ui.Output(), "Delete the stored credentials? (y/N): ")
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	if err := store.Delete(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	ui.PrintSuccess("Credentials deleted")
	return nil
}

// printTuple shows a tuple with every token masked
func printTuple(t *auth.Tuple) {
	sanitized := t.Sanitized()
	out := ui.Output()
	ui.PrintHighlight("Stored Credentials")
	fmt.Fprintf(out, "   Bearer:        %s\n", sanitized.Bearer)
	fmt.Fprintf(out, "   Browser token: %s\n", sanitized.BrowserToken)
	fmt.Fprintf(out, "   Device id:     %s\n", sanitized.DeviceID)
	fmt.Fprintf(out, "   Backend:       %s\n", cfg.Credentials.Backend)
}
