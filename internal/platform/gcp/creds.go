// Package gcp holds the shared client options for Google Cloud APIs.
package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv reads credentials from GOOGLE_APPLICATION_CREDENTIALS_JSON
// (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS (JSON or a file path), and an
// optional endpoint override from GCP_VISION_ENDPOINT. With nothing set the
// client libraries fall back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	var opts []option.ClientOption

	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case creds == "":
	case strings.HasPrefix(creds, "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	default:
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	if endpoint := strings.TrimSpace(os.Getenv("GCP_VISION_ENDPOINT")); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}
