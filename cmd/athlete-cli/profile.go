package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/internal/services/conversation"
	"gopkg.in/yaml.v3"
)

const defaultServer = "http://localhost:8080"

// Profile holds the CLI's saved settings, read from ~/.config/athlete/cli.yaml
type Profile struct {
	Server           string        `yaml:"server"`
	AssistantID      string        `yaml:"assistant_id"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	MaxPollAttempts  int           `yaml:"max_poll_attempts"`
	MaxRunRetries    int           `yaml:"max_run_retries"`
	MaxMessageLength int           `yaml:"max_message_length"`
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "athlete", "cli.yaml")
}

// loadProfile reads path. A missing file at the default location is an empty
// profile; a missing file the user named is an error.
func loadProfile(path string, explicit bool) (Profile, error) {
	var p Profile
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return p, nil
		}
		return p, fmt.Errorf("read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}

// merge resolves settings as flags over profile over CONVERSATION_* defaults
func merge(opts Options, p Profile) (string, conversation.Options) {
	defaults := config.GetConversationConfig()
	resolved := conversation.Options{
		AssistantID:      p.AssistantID,
		MaxMessageLength: firstInt(p.MaxMessageLength, defaults.MaxMessageLength),
		PollInterval:     firstDuration(opts.PollInterval, p.PollInterval, defaults.PollInterval),
		MaxPollAttempts:  firstInt(opts.MaxPollAttempts, p.MaxPollAttempts, defaults.MaxPollAttempts),
		MaxRunRetries:    firstInt(opts.MaxRunRetries, p.MaxRunRetries, defaults.MaxRunRetries),
	}

	server := opts.Server
	if server == "" {
		server = p.Server
	}
	if server == "" {
		server = defaultServer
	}
	return server, resolved
}

func firstInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
