package file

import "os"

// Environment variable names for credentials. These never appear in the
// TOML file.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvDropboxToken = "DROPBOX_ACCESS_TOKEN"
	EnvIMAPPassword = "IMAP_PASSWORD"
)

// Secrets holds credentials resolved from the environment.
type Secrets struct {
	GeminiAPIKey string
	DropboxToken string
	IMAPPassword string
}

// SecretsFromEnv reads credentials from the process environment. Missing
// values stay empty; the caller decides which sources it can run without.
func SecretsFromEnv() Secrets {
	return Secrets{
		GeminiAPIKey: os.Getenv(EnvGeminiAPIKey),
		DropboxToken: os.Getenv(EnvDropboxToken),
		IMAPPassword: os.Getenv(EnvIMAPPassword),
	}
}
