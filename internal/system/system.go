// Package system holds host-facing helpers: resource limits, disk and CPU
// checks, media probing, encoder detection, scratch directories and assets.
package system

import (
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
)

// ErrLowDisk is returned by CheckScratch when the scratch volume is nearly full.
var ErrLowDisk = errors.New("not enough free disk space")

// InitResourceLimits raises the open file limit; every render holds several
// inputs plus pipes.
func InitResourceLimits(logger zerolog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("could not read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("could not raise open file limit")
		return
	}
	logger.Debug().Uint64("nofile", uint64(rLimit.Cur)).Msg("open file limit raised")
}

// CheckScratch fails when the volume holding dir has less than minFreeMB free.
func CheckScratch(dir string, minFreeMB uint64) error {
	if minFreeMB == 0 {
		return nil
	}
	usage, err := disk.Usage(dir)
	if err != nil {
		return errors.Wrapf(err, "disk usage %s", dir)
	}
	if free := usage.Free / (1 << 20); free < minFreeMB {
		return errors.Wrapf(ErrLowDisk, "%s: %d MB free, need %d MB", dir, free, minFreeMB)
	}
	return nil
}

// RecommendedThreads picks an ffmpeg -threads value. configured wins when
// positive; otherwise the physical core count, at least one.
func RecommendedThreads(configured int) int {
	if configured > 0 {
		return configured
	}
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		n, err = cpu.Counts(true)
	}
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
