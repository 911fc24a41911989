package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var errLocked = errors.New("another bakatarta migration or import is running")

func defaultLockPath() string {
	return filepath.Join(os.TempDir(), "bakatarta-migrate.lock")
}

// acquireLock takes an exclusive, non-blocking file lock so two operators
// cannot rewrite the schema or content at the same time.
func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, errLocked
	}
	return lock, nil
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var lockPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			lock, err := acquireLock(lockPath)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			applied, err := st.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "Schema is up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(out, "Applied %s\n", version)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lockPath, "lock", defaultLockPath(), "Lock file guarding concurrent runs")
	return cmd
}
