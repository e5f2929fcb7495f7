package cmd

import (
	"os"
)

// CrashWriter appends to a fixed file, reopening it on every write so a
// panic dump survives even if nothing else in the process held the file
// open.
type CrashWriter struct {
	fileName string
}

func (w *CrashWriter) Write(p []byte) (n int, err error) {
	f, err := os.OpenFile(w.fileName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	n, err = f.Write(p)

	return
}
