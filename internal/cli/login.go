package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/actorrun/internal/apify"
)

const credentialsFileName = "credentials.json"

type credentials struct {
	Token string `json:"token"`
}

func newLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify and store an Apify API key",
		Long:  "Check an Apify API key against the server and store it for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = flagAPIKey
			}
			if token == "" {
				answer, err := prompter.Password(cmd.Context(), InputConfig{
					Message: "Apify API key:",
					Validator: func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errors.New("API key cannot be empty")
						}
						return nil
					},
				})
				if err != nil {
					return fmt.Errorf("read API key: %w", err)
				}
				token = answer
			}

			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("API key cannot be empty")
			}

			resp, err := client.Post("/api/v1/verify-key", map[string]string{"apiKey": token})
			if err != nil {
				return err
			}
			var out struct {
				Valid bool        `json:"valid"`
				User  *apify.User `json:"user"`
			}
			if err := resp.decode(&out); err != nil {
				return err
			}
			if !out.Valid || out.User == nil {
				return fmt.Errorf("API key was not accepted")
			}

			credPath, err := saveToken(token)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Logged in as %s\n", out.User.Username)
			fmt.Fprintf(w, "Credentials saved to %s\n", credPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Apify API key (prompted if omitted)")
	return cmd
}

// credentialsPath returns the path to the credentials file (~/.actorrun/credentials.json).
func credentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".actorrun", credentialsFileName), nil
}

func saveToken(token string) (string, error) {
	credPath, err := credentialsPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(credPath), 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(credentials{Token: token}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(credPath, data, 0600); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}
	return credPath, nil
}

// LoadToken reads the stored API key, returning empty string if not found.
func LoadToken() string {
	p, err := credentialsPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return ""
	}
	return creds.Token
}

// resolveToken picks the API key: the flag, then ACTORRUN_TOKEN, then
// APIFY_TOKEN, then stored credentials.
func resolveToken(flag string) string {
	for _, v := range []string{flag, os.Getenv("ACTORRUN_TOKEN"), os.Getenv("APIFY_TOKEN")} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return LoadToken()
}
