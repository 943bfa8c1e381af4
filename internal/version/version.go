// Package version provides build version information and runtime metadata.
package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// These are set via ldflags at build time.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

var (
	once        sync.Once
	execCommand = exec.CommandContext
	gitTimeout  = 2 * time.Second

	buildVersion, buildCommit, buildDate string
)

func ensureInitialized() {
	once.Do(func() {
		buildVersion, buildCommit, buildDate = Version, Commit, Date
		if buildDate == "" {
			buildDate = time.Now().Format("2006-01-02")
		}
		if buildCommit == "" {
			buildCommit = gitOutput("unknown", "describe", "--always", "--dirty")
		}
		if buildVersion == "" {
			buildVersion = strings.TrimPrefix(gitOutput("dev", "describe", "--tags", "--abbrev=0"), "v")
		}
	})
}

// gitOutput runs git with args and returns its trimmed output, or fallback.
func gitOutput(fallback string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := execCommand(ctx, "git", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return fallback
	}
	if v := strings.TrimSpace(out.String()); v != "" {
		return v
	}
	return fallback
}

// Reset clears the resolved values so the next call resolves them again.
func Reset() {
	once = sync.Once{}
}

// GetVersion returns the release version without a leading "v".
func GetVersion() string {
	ensureInitialized()
	return buildVersion
}

// GetCommit returns the commit the binary was built from.
func GetCommit() string {
	ensureInitialized()
	return buildCommit
}

// GetDate returns the build date.
func GetDate() string {
	ensureInitialized()
	return buildDate
}

// Info returns a one-line description of the build.
func Info() string {
	ensureInitialized()
	return fmt.Sprintf("aid %s (commit: %s, built: %s, %s/%s, %s)",
		buildVersion, buildCommit, buildDate, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
