package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/collabry/collabry-go/internal/session"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login --token <jwt>",
	Short: "Store a bearer token for subsequent commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginToken == "" {
			return errors.New("--token is required")
		}
		sess, err := session.FromToken(loginToken)
		if err != nil {
			return err
		}
		if sess.Expired(time.Now()) {
			return errors.New("token is already expired")
		}
		store, err := sessionStore()
		if err != nil {
			return err
		}
		if err := store.Save(sess); err != nil {
			return err
		}
		fmt.Printf("Signed in as %s (%s)\n", sess.UserID, sess.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sessionStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sessionStore()
		if err != nil {
			return err
		}
		sess, err := store.Load()
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("Not signed in")
			return nil
		}
		fmt.Printf("%s (%s)", sess.UserID, sess.Role)
		if !sess.ExpiresAt.IsZero() {
			fmt.Printf(", token expires %s", sess.ExpiresAt.Format(time.RFC3339))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "bearer token issued by the backend")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
