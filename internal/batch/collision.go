package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pixbatch/image-converter/job"
)

type CollisionPolicy int32

const (
	_ CollisionPolicy = iota
	PolicyReplace
	PolicyVersion
	PolicyCancel
)

func (p CollisionPolicy) String() string {
	switch p {
	case PolicyReplace:
		return "REPLACE"
	case PolicyVersion:
		return "VERSION"
	case PolicyCancel:
		return "CANCEL"
	default:
		return fmt.Sprintf("UNKNOWN POLICY %d", p)
	}
}

func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace":
		return PolicyReplace, nil
	case "version":
		return PolicyVersion, nil
	case "cancel":
		return PolicyCancel, nil
	default:
		return 0, fmt.Errorf("unknown collision policy: %s", s)
	}
}

// ErrCollisionCancelled aborts the whole batch before any write occurs. It is
// the only batch-wide fatal condition.
var ErrCollisionCancelled = errors.New("batch cancelled before any write")

// Partition classifies proposed outputs as fresh or colliding with files
// already on disk. Stat failures other than absence are left to the write
// stage to surface.
func Partition(jobs []job.Job) (fresh []job.Job, colliding []job.Job) {
	for _, j := range jobs {
		if _, err := os.Stat(j.OutputPath); err == nil {
			colliding = append(colliding, j)
		} else {
			fresh = append(fresh, j)
		}
	}

	return fresh, colliding
}

// Resolve applies one policy uniformly to the whole colliding set. Replace
// keeps the paths as proposed, the existing file is deleted right before the
// write. Version renames each output to "name (n).ext" with the smallest n
// whose name neither exists on disk nor is claimed by another job of the same
// batch.
func Resolve(colliding []job.Job, policy CollisionPolicy, claimed map[string]bool) ([]job.Job, error) {
	switch policy {
	case PolicyReplace:
		return colliding, nil
	case PolicyVersion:
		out := make([]job.Job, 0, len(colliding))
		for _, j := range colliding {
			p := versionedPath(j.OutputPath, func(cand string) bool {
				if claimed[cand] {
					return true
				}

				_, err := os.Stat(cand)

				return err == nil
			})

			claimed[p] = true
			j.OutputPath = p
			out = append(out, j)
		}

		return out, nil
	case PolicyCancel:
		return nil, ErrCollisionCancelled
	default:
		return nil, fmt.Errorf("unknown collision policy: %d", policy)
	}
}

func versionedPath(p string, taken func(string) bool) string {
	ext := filepath.Ext(p)
	base := strings.TrimSuffix(p, ext)

	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !taken(cand) {
			return cand
		}
	}
}
