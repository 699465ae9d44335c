package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anc-caregap-server/internal/setup"
)

var setupCmd = &cobra.Command{
	Use:           "setup",
	Short:         "Register this server with Claude Desktop",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSetup,
}

var setupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current registration",
	RunE:  runSetupStatus,
}

func init() {
	setupCmd.PersistentFlags().String("client-config", "", "Client config file (defaults to the platform location)")
	setupCmd.Flags().String("binary", "", "Server binary to register (defaults to this executable)")
	setupCmd.Flags().String("config", "", "Server config file passed to the registered server")
	setupCmd.AddCommand(setupStatusCmd)
}

func clientConfigPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("client-config"); p != "" {
		return p, nil
	}
	return setup.ConfigPath()
}

func runSetup(cmd *cobra.Command, args []string) error {
	path, err := clientConfigPath(cmd)
	if err != nil {
		return err
	}
	binary, _ := cmd.Flags().GetString("binary")
	if binary == "" {
		if binary, err = os.Executable(); err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
	}
	configFile, _ := cmd.Flags().GetString("config")

	entry, err := setup.Register(path, setup.Options{BinaryPath: binary, ConfigFile: configFile})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n  command: %s\n", setup.ServerName, path, entry.Command)
	fmt.Fprintln(cmd.OutOrStdout(), "Restart Claude Desktop to load the server.")
	return nil
}

func runSetupStatus(cmd *cobra.Command, args []string) error {
	path, err := clientConfigPath(cmd)
	if err != nil {
		return err
	}
	st, err := setup.Inspect(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Client config: %s\n", st.ConfigPath)
	fmt.Fprintf(out, "Registered:    %t\n", st.Registered)
	if st.Registered {
		fmt.Fprintf(out, "Command:       %s\n", st.Server.Command)
	}
	for _, issue := range st.Issues {
		fmt.Fprintf(out, "  ! %s\n", issue)
	}
	return nil
}
