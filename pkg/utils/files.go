package utils

import (
	"io"
	"os"
	"path/filepath"

	"tlog.app/go/errors"
)

// Stdio is the path that means stdin or stdout.
const Stdio = "-"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	if relPath == Stdio {
		parentDir, err = os.Getwd()
		return relPath, parentDir, err
	}

	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ReadInput reads path, or stdin for Stdio.
func ReadInput(path string, stdin io.Reader) ([]byte, error) {
	if path == Stdio {
		data, err := io.ReadAll(stdin)
		return data, errors.Wrap(err, "read stdin")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}

	return data, nil
}

// WriteOutput writes data to path, or to stdout for "" and Stdio.
func WriteOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == Stdio {
		_, err := stdout.Write(data)
		return errors.Wrap(err, "write stdout")
	}

	err := os.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}
