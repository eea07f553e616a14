package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup <name> <email> <password>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(3),
	RunE:  runSignup,
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(2),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}

func runSignup(cmd *cobra.Command, args []string) error {
	resp, err := api.Signup(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}
	if err := storeSession(resp.Token, resp.User); err != nil {
		return err
	}
	fmt.Printf("%s Logged in as %s <%s>\n", resp.Message, resp.User.Name, resp.User.Email)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	resp, err := api.Login(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if err := storeSession(resp.Token, resp.User); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	// Logout is purely client side: the server keeps no revocation list.
	if err := os.Remove(sessionPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	user, err := api.Me(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	return nil
}
