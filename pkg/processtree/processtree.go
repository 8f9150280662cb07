package processtree

import (
	ps "github.com/mitchellh/go-ps"

	"github.com/core-tools/hsu-restarter-go/pkg/errors"
)

// Descendants enumerates the pids of every live descendant of root,
// transitively, excluding root itself. The snapshot is best-effort: a
// process that forks or exits between the snapshot and its use may be
// missed, and a descendant that has reparented away (daemonized) is not
// found. Order is breadth-first, children before grandchildren.
func Descendants(root int) ([]int, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, errors.NewProcessError("failed to snapshot process table", err).WithContext("root", root)
	}

	children := make(map[int][]int, len(procs))
	for _, p := range procs {
		children[p.PPid()] = append(children[p.PPid()], p.Pid())
	}

	var descendants []int
	frontier := []int{root}
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, pid := range frontier {
			for _, child := range children[pid] {
				descendants = append(descendants, child)
				next = append(next, child)
			}
		}
		frontier = next
	}

	return descendants, nil
}
