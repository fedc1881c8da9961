package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
server: https://athlete.example
assistant_id: asst_profile
poll_interval: 2s
max_poll_attempts: 5
max_run_retries: 1
max_message_length: 400
`)

	p, err := loadProfile(path, true)
	require.NoError(t, err)
	assert.Equal(t, Profile{
		Server:           "https://athlete.example",
		AssistantID:      "asst_profile",
		PollInterval:     2 * time.Second,
		MaxPollAttempts:  5,
		MaxRunRetries:    1,
		MaxMessageLength: 400,
	}, p)
}

func TestLoadProfileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	p, err := loadProfile(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)

	_, err = loadProfile(missing, true)
	assert.Error(t, err)

	_, err = loadProfile(writeProfile(t, "poll_interval: [\n"), true)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	t.Setenv("CONVERSATION_MAX_POLL_ATTEMPTS", "")

	tests := []struct {
		name        string
		opts        Options
		profile     Profile
		wantServer  string
		wantPoll    time.Duration
		wantAttempt int
		wantRetries int
	}{
		{
			name:        "defaults",
			wantServer:  defaultServer,
			wantPoll:    1500 * time.Millisecond,
			wantAttempt: 10,
			wantRetries: 3,
		},
		{
			name:        "profile over defaults",
			profile:     Profile{Server: "https://athlete.example", PollInterval: time.Second, MaxPollAttempts: 4},
			wantServer:  "https://athlete.example",
			wantPoll:    time.Second,
			wantAttempt: 4,
			wantRetries: 3,
		},
		{
			name:        "flags over profile",
			opts:        Options{Server: "http://127.0.0.1:9000", PollInterval: 10 * time.Millisecond, MaxRunRetries: 1},
			profile:     Profile{Server: "https://athlete.example", PollInterval: time.Second, MaxRunRetries: 5},
			wantServer:  "http://127.0.0.1:9000",
			wantPoll:    10 * time.Millisecond,
			wantAttempt: 10,
			wantRetries: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, opts := merge(tt.opts, tt.profile)
			assert.Equal(t, tt.wantServer, server)
			assert.Equal(t, tt.wantPoll, opts.PollInterval)
			assert.Equal(t, tt.wantAttempt, opts.MaxPollAttempts)
			assert.Equal(t, tt.wantRetries, opts.MaxRunRetries)
		})
	}
}
