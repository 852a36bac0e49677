package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ExpandAll expands every ZIP archive found directly in dir into dir,
// in place, and repeats until extraction produces no further archives.
// Non-archive files are left untouched. Returns the paths of all
// extracted files.
func ExpandAll(dir string) ([]string, error) {
	var extracted []string
	expanded := make(map[string]bool)

	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return extracted, eris.Wrap(err, "archive: read directory")
		}

		progressed := false
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if expanded[path] || !isZIP(path) {
				continue
			}
			expanded[path] = true
			progressed = true

			zap.L().Info("archive: expanding", zap.String("file", entry.Name()))
			files, err := extractZIP(path, dir)
			extracted = append(extracted, files...)
			if err != nil {
				return extracted, err
			}
		}

		if !progressed {
			return extracted, nil
		}
	}
}

// isZIP reports whether the file at path is a ZIP archive, judged by
// content rather than extension.
func isZIP(path string) bool {
	r, err := zip.OpenReader(path)
	if r != nil {
		_ = r.Close()
	}
	// An archive with insecure entry names is still an archive; the
	// per-entry guard below rejects the offending entries.
	return err == nil || errors.Is(err, zip.ErrInsecurePath)
}

// extractZIP extracts all entries from a ZIP archive to the destination
// directory. Returns the list of extracted file paths.
func extractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, eris.Wrap(err, "archive: open zip")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

// extractEntry extracts a single zip.File to the destination directory.
// Returns the extracted file path, or empty string for directories.
func extractEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("archive: illegal path %q (zip slip attempt)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "archive: create directory")
		}
		return "", nil
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "archive: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "archive: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "archive: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "archive: write file")
	}

	return destPath, nil
}
