package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API client credentials",
	Long: `Manage stored TikTok Research API and Reddit application credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login <tiktok|reddit>",
	Short: "Store client credentials securely",
	Long: `Store the client credentials of a platform in the system keychain or an
encrypted file.

You will be prompted for:
  - Client key (TikTok) or client id (Reddit)
  - Client secret (hidden as you type)
  - User agent (Reddit only, e.g. "linux:research-crawler:1.0 (by /u/you)")`,
	Example: `  socialcrawl auth login tiktok
  socialcrawl auth login reddit`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: auth.Platforms,
	Run:       runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:       "logout <tiktok|reddit>",
	Short:     "Remove stored credentials",
	Args:      cobra.ExactArgs(1),
	ValidArgs: auth.Platforms,
	Run:       runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	Long:  `List stored credentials with their secrets masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	platform := strings.ToLower(args[0])
	if !auth.IsSupportedPlatform(platform) {
		ui.PrintError("Unsupported platform", platform)
		os.Exit(1)
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(platform); existing != nil {
		fmt.Printf("Credentials for %s already exist. Replace them? (y/N): ", platform)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	idLabel := "Client id"
	if platform == auth.PlatformTikTok {
		idLabel = "Client key"
	}

	fmt.Printf("%s: ", idLabel)
	clientID, err := readLine(reader)
	if err != nil {
		ui.PrintError("Failed to read "+strings.ToLower(idLabel), err.Error())
		os.Exit(1)
	}

	fmt.Print("Client secret (hidden): ")
	secret, err := readPassword(reader)
	if err != nil {
		ui.PrintError("Failed to read client secret", err.Error())
		os.Exit(1)
	}

	var userAgent string
	if platform == auth.PlatformReddit {
		fmt.Print("User agent: ")
		if userAgent, err = readLine(reader); err != nil {
			ui.PrintError("Failed to read user agent", err.Error())
			os.Exit(1)
		}
	}

	creds := &auth.ClientCredentials{
		Platform:     platform,
		ClientID:     clientID,
		ClientSecret: secret,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}
	if err := manager.Store(creds); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials saved for %s", platform))
	fmt.Printf("\nStart crawling with 'socialcrawl %s'\n", platform)
}

func runLogout(cmd *cobra.Command, args []string) {
	platform := strings.ToLower(args[0])

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if err := manager.Delete(platform); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Credentials removed: " + platform)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	all, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list credentials", err.Error())
		os.Exit(1)
	}

	if len(all) == 0 {
		ui.PrintInfo("No stored credentials", "Use 'socialcrawl auth login <platform>' to add some")
		return
	}

	ui.PrintHighlight("Stored Credentials")
	fmt.Println()

	for i, creds := range all {
		sanitized := auth.Sanitize(creds)
		fmt.Printf("%d. Platform: %s\n", i+1, sanitized.Platform)
		fmt.Printf("   Client ID: %s\n", sanitized.ClientID)
		fmt.Printf("   Client Secret: %s\n", sanitized.ClientSecret)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword reads without echo when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}
	return readLine(reader)
}
