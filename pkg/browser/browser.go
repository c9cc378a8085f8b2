// Package browser opens packfeed pages in the user's default browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// start launches cmd without waiting for it. Tests replace it.
var start = func(cmd *exec.Cmd) error { return cmd.Start() }

// Open opens the specified URL in the default browser.
func Open(urlString string) error {
	cmd, err := Command(runtime.GOOS, urlString)
	if err != nil {
		return err
	}
	return start(cmd)
}

// Command returns the command that opens urlString on goos. Only http and
// https URLs are accepted so the argument cannot be interpreted as a path or
// script.
func Command(goos, urlString string) (*exec.Cmd, error) {
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https allowed)", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: missing host in %q", urlString)
	}

	switch goos {
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", urlString), nil // #nosec G204 -- URL validated above
	case "darwin":
		return exec.Command("open", urlString), nil // #nosec G204 -- URL validated above
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", urlString), nil // #nosec G204 -- URL validated above
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
