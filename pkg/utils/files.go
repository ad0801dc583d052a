package utils

import (
	"os"
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ResolveInclude finds an included file. The including file's directory is
// tried first, then the working directory. The returned path is absolute.
func ResolveInclude(baseDir, name string) (string, error) {
	fullPath := filepath.Join(baseDir, name)
	if filepath.IsAbs(name) {
		fullPath = name
	}

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		if cwdPath, absErr := filepath.Abs(name); absErr == nil {
			if _, err := os.Stat(cwdPath); err == nil {
				fullPath = cwdPath
			}
		}
	}

	return filepath.Abs(fullPath)
}

// OutputPath names the expanded copy of in. With an empty outDir the file
// lands next to its input. The suffix goes before the extension:
// "main.c" + ".out" -> "main.out.c".
func OutputPath(in, outDir, suffix string) string {
	dir, base := filepath.Split(in)
	if outDir != "" {
		dir = outDir
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+suffix+ext)
}
