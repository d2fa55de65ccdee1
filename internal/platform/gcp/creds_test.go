package gcp

import "testing"

func TestClientOptionsFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GCP_VISION_ENDPOINT", "")
	if opts := ClientOptionsFromEnv(); len(opts) != 0 {
		t.Fatalf("expected no options, got %d", len(opts))
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/gcp/key.json")
	t.Setenv("GCP_VISION_ENDPOINT", "vision.example:443")
	if opts := ClientOptionsFromEnv(); len(opts) != 2 {
		t.Fatalf("expected file + endpoint options, got %d", len(opts))
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", `{"type":"service_account"}`)
	t.Setenv("GCP_VISION_ENDPOINT", "")
	if opts := ClientOptionsFromEnv(); len(opts) != 1 {
		t.Fatalf("expected inline credentials, got %d", len(opts))
	}
}
