package retention

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alumnichat/pkg/logger"
)

var errNotOwner = errors.New("lease: not owner")

// FileLease is a best-effort exclusive lock shared by processes on the same
// state directory.
type FileLease struct {
	path string
	now  func() time.Time
}

type leaseFile struct {
	Owner   string    `json:"owner"`
	Expires time.Time `json:"expires"`
}

func NewFileLease(dir string) *FileLease {
	return &FileLease{path: filepath.Join(dir, "retention.lock"), now: time.Now}
}

func (l *FileLease) write(path string, lf leaseFile) error {
	b, err := json.Marshal(lf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func (l *FileLease) read() (leaseFile, error) {
	var lf leaseFile
	data, err := os.ReadFile(l.path)
	if err != nil {
		return lf, err
	}
	err = json.Unmarshal(data, &lf)
	return lf, err
}

// Acquire takes the lease for owner unless someone else holds an unexpired one.
func (l *FileLease) Acquire(owner string, ttl time.Duration) (bool, error) {
	now := l.now()
	tmp := l.path + "." + owner + ".tmp"
	if err := l.write(tmp, leaseFile{Owner: owner, Expires: now.Add(ttl)}); err != nil {
		logger.Error("lease_tmp_write_failed", "path", tmp, "error", err)
		return false, err
	}
	defer os.Remove(tmp)

	// link fails if the lock exists
	if err := os.Link(tmp, l.path); err == nil {
		logger.Debug("lease_acquired", "path", l.path, "owner", owner)
		return true, nil
	}
	existing, err := l.read()
	if err != nil {
		return false, err
	}
	if existing.Expires.After(now) {
		logger.Info("lease_currently_held", "path", l.path, "owner", existing.Owner)
		return false, nil
	}
	if err := os.Rename(tmp, l.path); err != nil {
		logger.Error("lease_replace_failed", "error", err)
		return false, err
	}
	logger.Info("lease_acquired_replaced", "path", l.path, "owner", owner, "previous", existing.Owner)
	return true, nil
}

func (l *FileLease) Renew(owner string, ttl time.Duration) error {
	existing, err := l.read()
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		return errNotOwner
	}
	tmp := l.path + "." + owner + ".tmp"
	if err := l.write(tmp, leaseFile{Owner: owner, Expires: l.now().Add(ttl)}); err != nil {
		return fmt.Errorf("lease renew: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("lease renew: %w", err)
	}
	return nil
}

func (l *FileLease) Release(owner string) error {
	existing, err := l.read()
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		logger.Error("lease_release_not_owner", "owner", owner, "holder", existing.Owner)
		return errNotOwner
	}
	return os.Remove(l.path)
}
