package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcreport/internal/remote"
)

var (
	passwordValue string
	passwordRCON  rconFlags
)

// passwordStore is swapped in tests.
var passwordStore = func() credentialStore { return remote.NewKeyringStore() }

type credentialStore interface {
	Set(address, password string) error
	Delete(address string) error
}

func newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage the RCON password stored in the OS keyring",
		Long: `Stores or removes the RCON password of a server in the OS keyring.

Passwords are stored per server address (host:port). When RCON_PWD is not set,
commands that talk to a server read the password from the keyring.`,
	}
	passwordRCON.register(cmd.PersistentFlags())

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store the RCON password, read from --password or stdin",
		Args:  cobra.NoArgs,
		RunE:  runPasswordSet,
	}
	setCmd.Flags().StringVar(&passwordValue, "password", "", "Password to store (read from stdin when omitted)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored RCON password",
		Args:  cobra.NoArgs,
		RunE:  runPasswordClear,
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func init() {
	rootCmd.AddCommand(newPasswordCmd())
}

func passwordAddress(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	passwordRCON.apply(cmd, &cfg)
	return cfg.RCON.Address(), nil
}

func runPasswordSet(cmd *cobra.Command, args []string) error {
	addr, err := passwordAddress(cmd)
	if err != nil {
		return err
	}

	pwd := passwordValue
	if !cmd.Flags().Changed("password") {
		fmt.Fprintf(cmd.ErrOrStderr(), "RCON password for %s: ", addr)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		pwd = strings.TrimRight(line, "\r\n")
	}
	if pwd == "" {
		return errors.New("password must not be empty")
	}

	if err := passwordStore().Set(addr, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password for %s stored\n", addr)
	return nil
}

func runPasswordClear(cmd *cobra.Command, args []string) error {
	addr, err := passwordAddress(cmd)
	if err != nil {
		return err
	}
	if err := passwordStore().Delete(addr); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password for %s removed\n", addr)
	return nil
}
