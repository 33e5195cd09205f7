package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// ExposureStatus describes how the vault files relate to an enclosing git
// repository.
type ExposureStatus struct {
	IsRepo           bool
	PlaintextTracked bool
	PlaintextIgnored bool
	BlobTracked      bool

	plaintext string
	blob      string
}

// Available reports whether the git binary can be found.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsGitRepo checks if dir is inside a git work tree
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(dir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(dir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	err := cmd.Run()

	// exit code 0 means ignored
	return err == nil
}

// CheckExposure inspects plaintext and blob, both relative to dir.
func CheckExposure(dir, plaintext, blob string) *ExposureStatus {
	status := &ExposureStatus{plaintext: plaintext, blob: blob}

	if !Available() || !IsGitRepo(dir) {
		return status
	}
	status.IsRepo = true

	status.PlaintextTracked = IsTracked(dir, plaintext)
	status.PlaintextIgnored = IsIgnored(dir, plaintext)
	status.BlobTracked = IsTracked(dir, blob)

	return status
}

// Exposed reports whether the plaintext could end up in a commit.
func (s *ExposureStatus) Exposed() bool {
	return s.IsRepo && (s.PlaintextTracked || !s.PlaintextIgnored)
}

// Format renders the status for display. It returns "" outside a repository.
func (s *ExposureStatus) Format() string {
	if !s.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	switch {
	case s.PlaintextTracked:
		result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", s.plaintext, s.plaintext))
	case !s.PlaintextIgnored:
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore (add it to .gitignore)\n", s.plaintext))
	default:
		result.WriteString(fmt.Sprintf("   ok: %s is ignored by git\n", s.plaintext))
	}

	if s.BlobTracked {
		result.WriteString(fmt.Sprintf("   ok: %s is tracked by git\n", s.blob))
	} else {
		result.WriteString(fmt.Sprintf("   info: %s is not tracked by git\n", s.blob))
	}

	return result.String()
}
