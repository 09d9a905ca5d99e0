package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StaleLockAfter is the age past which a lock file is assumed to belong to a
// run that died without releasing it. A roster update takes well under a
// second.
var StaleLockAfter = 10 * time.Minute

// Lock takes the exclusive lock for the roster at path by creating
// "<path>.lock" holding the owner's pid and start time. A lock older than
// StaleLockAfter is removed and taken over. The returned func releases it.
func Lock(path string) (func() error, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) && removeStale(lockPath) {
		f, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	}
	if errors.Is(err, os.ErrExist) {
		owner, _ := os.ReadFile(lockPath)
		return nil, fmt.Errorf("%w: %s (%s)", ErrRosterLocked, lockPath, strings.TrimSpace(string(owner)))
	}
	if err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(f, "pid=%d started=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	_ = f.Close()

	return func() error {
		return os.Remove(lockPath)
	}, nil
}

func removeStale(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		// Released between the create attempt and the stat.
		return errors.Is(err, os.ErrNotExist)
	}
	if time.Since(info.ModTime()) < StaleLockAfter {
		return false
	}
	err = os.Remove(lockPath)
	return err == nil || errors.Is(err, os.ErrNotExist)
}
