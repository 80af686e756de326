// Package cmd contains shared helpers for the command line drivers.
package cmd

// OrPanic panics if err is not nil. Flag registration is the only place this
// belongs; runtime failures return errors.
func OrPanic(err error) {
	if err != nil {
		panic(err)
	}
}
