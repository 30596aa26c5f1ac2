/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/kooshamoradpour/G5-TechStore/internal/db"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/kooshamoradpour/G5-TechStore/internal/store"
	"github.com/spf13/cobra"
)

// usersCmd groups account administration that has no API surface.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersPromoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant admin rights to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, args[0], true)
	},
}

var usersDemoteCmd = &cobra.Command{
	Use:   "demote <email>",
	Short: "Revoke admin rights from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersPromoteCmd)
	usersCmd.AddCommand(usersDemoteCmd)
}

// setAdmin takes effect on the user's next login; tokens already issued
// keep their claim until they expire.
func setAdmin(cmd *cobra.Command, email string, isAdmin bool) error {
	cfg, log := loadConfig()
	conn, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	accounts := services.NewAccountService(
		store.NewUserRepository(conn),
		store.NewCartRepository(conn),
		nil, nil, nil, log,
	)
	user, err := accounts.SetAdmin(cmd.Context(), email, isAdmin)
	if err != nil {
		return fmt.Errorf("%s: %w", email, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is_admin=%t\n", user.Username, user.Email, user.IsAdmin)
	return nil
}
