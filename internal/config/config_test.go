package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid with tokens",
			config: Config{
				Language:     "python",
				Credentials:  CredentialsConfig{Tokens: []CredentialToken{{Name: "a", Token: "t"}}},
				SearchPeriod: SearchPeriodConfig{Period: "30d", Slice: "1d"},
			},
		},
		{
			name: "valid anonymous",
			config: Config{
				Language:     "python",
				Credentials:  CredentialsConfig{Anonymous: 2},
				SearchPeriod: SearchPeriodConfig{Period: "30d", Slice: "1d"},
			},
		},
		{
			name:    "missing language",
			config:  Config{Credentials: CredentialsConfig{Anonymous: 1}, SearchPeriod: SearchPeriodConfig{Period: "1d", Slice: "1h"}},
			wantErr: "language must be set",
		},
		{
			name: "no worker identity",
			config: Config{
				Language:     "python",
				SearchPeriod: SearchPeriodConfig{Period: "1d", Slice: "1h"},
			},
			wantErr: "no worker identity configured",
		},
		{
			name: "missing search period",
			config: Config{
				Language:    "python",
				Credentials: CredentialsConfig{Anonymous: 1},
			},
			wantErr: "search_period.period and search_period.slice must be set",
		},
		{
			name: "empty token",
			config: Config{
				Language:     "python",
				Credentials:  CredentialsConfig{Tokens: []CredentialToken{{Name: "a", Token: "  "}}},
				SearchPeriod: SearchPeriodConfig{Period: "1d", Slice: "1h"},
			},
			wantErr: `credentials.tokens entry "a" has an empty token`,
		},
		{
			name: "incomplete app credential",
			config: Config{
				Language:     "python",
				Credentials:  CredentialsConfig{Apps: []CredentialApp{{AppID: 1}}},
				SearchPeriod: SearchPeriodConfig{Period: "1d", Slice: "1h"},
			},
			wantErr: "is missing app_id/installation_id/private_key_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestCredentialsConfig_WorkerCount(t *testing.T) {
	c := CredentialsConfig{
		Tokens:    []CredentialToken{{Name: "a", Token: "x"}, {Name: "b", Token: "y"}},
		Apps:      []CredentialApp{{AppID: 1, InstallationID: 2, PrivateKeyPath: "k"}},
		Anonymous: 3,
	}
	require.Equal(t, 6, c.WorkerCount())
}
