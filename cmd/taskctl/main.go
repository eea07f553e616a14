// Package main implements taskctl, the command-line client for the task
// planner API.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"taskplanner/internal/client"
	"taskplanner/internal/domain/models"
)

var (
	serverURL string
	api       *client.Client
)

var rootCmd = &cobra.Command{
	Use:           "taskctl",
	Short:         "taskctl - manage your tasks from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		session := client.NewSession()
		if saved, err := loadSession(); err == nil {
			session.SetIdentity(saved.Token, saved.User)
		}
		// A rejected token is useless; drop the file so the next
		// command prompts for a fresh login.
		session.OnInvalidate(func() {
			_ = os.Remove(sessionPath())
		})
		api = client.New(serverURL, session)
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOrDefault("TASKPLANNER_URL", "http://localhost:8080"), "base URL of the task planner server")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// savedSession is the on-disk form of the login state, the CLI's analog of
// the browser's stored token.
type savedSession struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func sessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "taskctl", "session.json")
}

func loadSession() (*savedSession, error) {
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		return nil, err
	}
	var s savedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func storeSession(token string, user models.PublicUser) error {
	path := sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(savedSession{Token: token, User: user})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
