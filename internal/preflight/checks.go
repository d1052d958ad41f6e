package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bindery/internal/config"
	"bindery/internal/repo"
)

// CheckRepository verifies that the repository endpoint is reachable and the
// API token is accepted. It uses a 10-second timeout and a single attempt.
func CheckRepository(ctx context.Context, cfg *config.Config) Result {
	const name = "Repository"

	if cfg.Repository.BaseURL == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if cfg.Repository.Token == "" {
		return Result{Name: name, Detail: "missing api token"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := repo.NewClient(cfg)
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRepoError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minGiB gibibytes available for package assembly.
func CheckFreeSpace(name, path string, minGiB int64) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "no minimum configured"}
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}

	available := int64(stat.Bavail) * stat.Bsize
	required := minGiB << 30
	if available < required {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%.1f GiB free, %d GiB required)", path, float64(available)/float64(1<<30), minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%.1f GiB free)", path, float64(available)/float64(1<<30))}
}

// summarizeRepoError produces a human-readable summary for repository check failures.
func summarizeRepoError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (repository unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (repository unreachable)"
	}
	if repo.IsRejected(err) {
		return "auth failed (invalid api token)"
	}
	return err.Error()
}
