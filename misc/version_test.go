package misc

import "testing"

func TestIdentity(t *testing.T) {
	if GetAppName() != "docgen" {
		t.Errorf("GetAppName() = %q, want %q", GetAppName(), "docgen")
	}
	if GetVersion() == "" {
		t.Error("GetVersion() returned empty string")
	}
	if GetGitHash() == "" {
		t.Error("GetGitHash() returned empty string")
	}
}

func TestGetGitHash_Injected(t *testing.T) {
	saved := gitHash
	defer func() { gitHash = saved }()

	gitHash = "abc123"
	if got := GetGitHash(); got != "abc123" {
		t.Errorf("GetGitHash() = %q, want %q", got, "abc123")
	}
}
