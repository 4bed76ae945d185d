//go:build windows

package persistence

// Windows has no cheap access(2) equivalent; the write itself reports
// permission failures.
func writable(dir string) error {
	return nil
}
