package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	cases := []struct {
		name     string
		provided string
		config   string
		want     bool
	}{
		{"match", "secret-key", "secret-key", true},
		{"mismatch", "wrong-key", "secret-key", false},
		{"empty provided", "", "secret-key", false},
		{"empty config", "secret-key", "", false},
		{"both empty", "", "", false},
		{"length mismatch", "short", "a-much-longer-key", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateAPIKey(tc.provided, tc.config); got != tc.want {
				t.Errorf("ValidateAPIKey(%q, %q) = %v, want %v", tc.provided, tc.config, got, tc.want)
			}
		})
	}
}

func TestExtractAPIKey(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer my-token", "my-token", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"bearer only", "Bearer ", "", true},
		{"bearer whitespace", "Bearer    ", "", true},
		{"trims whitespace", "Bearer  padded ", "padded", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, err := ExtractAPIKey(r)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for header %q", tc.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
