package engine

import (
	"strconv"
	"syscall"
)

// alive reports whether a process with the given pid exists.
func alive(pid string) bool {
	n, err := strconv.Atoi(pid)
	if err != nil {
		return false
	}
	return syscall.Kill(n, 0) == nil
}
