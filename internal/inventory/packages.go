package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmsmith/charmsmith/internal/runner"
)

// MissingPackages returns the required packages that dpkg does not
// report as installed. A dpkg-query failure counts as not installed.
func MissingPackages(ctx context.Context, run runner.Runner) []string {
	var missing []string
	for _, pkg := range RequiredPackages {
		stdout, _, err := run.Output(ctx, "", "dpkg-query", "-W", "-f=${db:Status-Status}", pkg)
		if err != nil || strings.TrimSpace(string(stdout)) != "installed" {
			missing = append(missing, pkg)
		}
	}
	return missing
}

// InstallPackages installs the named packages with apt-get, prefixed
// with sudo when not running as root.
func InstallPackages(ctx context.Context, run runner.Runner, sudo bool, packages []string) error {
	if len(packages) == 0 {
		return nil
	}

	argv := append([]string{"apt-get", "install", "-y"}, packages...)
	if sudo {
		argv = append([]string{"sudo"}, argv...)
	}
	if err := run.Run(ctx, "", argv...); err != nil {
		return fmt.Errorf("failed to install packages: %w", err)
	}
	return nil
}

// EnsurePackages installs any required packages that are missing and
// returns the names of those newly installed, so the caller can record
// them for removal bookkeeping.
func EnsurePackages(ctx context.Context, run runner.Runner, sudo bool) ([]string, error) {
	missing := MissingPackages(ctx, run)
	if len(missing) == 0 {
		return nil, nil
	}
	if err := InstallPackages(ctx, run, sudo, missing); err != nil {
		return nil, err
	}
	return missing, nil
}
