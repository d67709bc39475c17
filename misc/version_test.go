package misc

import "testing"

func TestGetAppName(t *testing.T) {
	if got := GetAppName(); got != "cssmin" {
		t.Errorf("GetAppName() = %q, want cssmin", got)
	}
}

func TestGetVersion(t *testing.T) {
	saved := version
	defer func() { version = saved }()

	version = "1.2.3"
	if got := GetVersion(); got != "1.2.3" {
		t.Errorf("GetVersion() = %q, want 1.2.3", got)
	}

	version = "dev"
	if got := GetVersion(); got == "" {
		t.Error("GetVersion() returned empty string")
	}
}

func TestGetGitHash(t *testing.T) {
	saved := gitHash
	defer func() { gitHash = saved }()

	gitHash = "abcdef"
	if got := GetGitHash(); got != "abcdef" {
		t.Errorf("GetGitHash() = %q, want abcdef", got)
	}

	gitHash = ""
	if got := GetGitHash(); got == "" {
		t.Error("GetGitHash() returned empty string")
	}
}
