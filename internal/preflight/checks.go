package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess passes when path is a directory kura can list and
// write into.
func CheckDirectoryAccess(name, path string) Result {
	return checkAccess(name, path, true, unix.R_OK|unix.W_OK|unix.X_OK)
}

// CheckFileAccess passes when path is a regular file kura can read and
// rewrite.
func CheckFileAccess(name, path string) Result {
	return checkAccess(name, path, false, unix.R_OK|unix.W_OK)
}

func checkAccess(name, path string, wantDir bool, mode uint32) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	fail := func(format string, args ...any) Result {
		return Result{Name: name, Detail: path + " (" + fmt.Sprintf(format, args...) + ")"}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail("stat: %v", err)
	case wantDir && !info.IsDir():
		return fail("not a directory")
	case !wantDir && info.IsDir():
		return fail("is a directory")
	}
	if err := unix.Access(path, mode); err != nil {
		return fail("insufficient permissions: %v", err)
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckCreatableDirectory passes when path exists with access, or when its
// nearest existing ancestor would let it be created.
func CheckCreatableDirectory(name, path string) Result {
	if result := CheckDirectoryAccess(name, path); result.Passed || strings.TrimSpace(path) == "" {
		return result
	}
	for parent := filepath.Dir(path); ; parent = filepath.Dir(parent) {
		if _, err := os.Stat(parent); err == nil {
			result := CheckDirectoryAccess(name, parent)
			if result.Passed {
				result.Detail = fmt.Sprintf("%s (will be created)", path)
			}
			return result
		}
		if parent == filepath.Dir(parent) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
	}
}

// CheckEndpoint verifies that url answers. Any response below 500 counts as
// reachable; the base endpoints of metadata sources need not return 200.
func CheckEndpoint(ctx context.Context, name, url string, header map[string]string) Result {
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (check token)"}
	case resp.StatusCode >= http.StatusInternalServerError:
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (unreachable)"
	}
	return err.Error()
}
