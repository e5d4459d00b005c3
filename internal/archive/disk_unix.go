//go:build linux || darwin

package archive

import "golang.org/x/sys/unix"

// diskUsage returns the used and user-available bytes of the filesystem
// holding path
func diskUsage(path string) (diskStats, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return diskStats{}, err
	}

	bsize := uint64(st.Bsize)
	return diskStats{
		Used:  (st.Blocks - st.Bfree) * bsize,
		Avail: st.Bavail * bsize,
	}, nil
}
