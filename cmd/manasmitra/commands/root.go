// Package commands implements the manasmitra terminal app.
package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benvon/manasmitra/internal/apiclient"
)

const defaultServer = "http://localhost:8080"

// options are the flags shared by every command.
type options struct {
	server      string
	token       string
	profileFile string
}

// savedProfile is the on-disk profile, kept between runs.
type savedProfile struct {
	ID        string `yaml:"id"`
	Token     string `yaml:"token"`
	ExpiresAt string `yaml:"expires_at"`
	Server    string `yaml:"server"`
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "manasmitra",
		Short:         "A calm companion for daily check-ins and mindful breathing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("MANASMITRA_SERVER", defaultServer), "API server URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("MANASMITRA_TOKEN"), "Profile token (defaults to the saved profile)")
	root.PersistentFlags().StringVar(&opts.profileFile, "profile-file", defaultProfileFile(), "Where the profile token is saved")

	root.AddCommand(newProfileCmd(opts))
	root.AddCommand(newCheckInCmd(opts))
	root.AddCommand(newTrendCmd(opts))
	root.AddCommand(newAffirmationCmd(opts))
	root.AddCommand(newBreatheCmd(opts))
	root.AddCommand(newStatsCmd(opts))

	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultProfileFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "manasmitra-profile.yaml"
	}
	return filepath.Join(dir, "manasmitra", "profile.yaml")
}

// client returns an API client using the explicit token or the saved profile.
func (o *options) client() (*apiclient.Client, error) {
	token := o.token
	if token == "" {
		p, err := loadProfile(o.profileFile)
		if err != nil {
			return nil, err
		}
		token = p.Token
	}
	return apiclient.New(o.server, token), nil
}

func loadProfile(path string) (savedProfile, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- user supplied path
	if errors.Is(err, os.ErrNotExist) {
		return savedProfile{}, apiclient.ErrNoProfile
	}
	if err != nil {
		return savedProfile{}, fmt.Errorf("read profile: %w", err)
	}
	var p savedProfile
	if err := yaml.Unmarshal(content, &p); err != nil {
		return savedProfile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Token == "" {
		return savedProfile{}, apiclient.ErrNoProfile
	}
	return p, nil
}

func saveProfile(path string, p savedProfile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	content, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
