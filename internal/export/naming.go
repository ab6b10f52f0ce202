package export

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// FileBase is the archive name without extension: <client>-<YYYY-MM-DD>.
func FileBase(client string, at time.Time) string {
	return fmt.Sprintf("%s-%s", client, at.Format("2006-01-02"))
}

// RemoteDir builds <base>/<year>/[<folder>/]<Mon>/<client-lowercased>.
func RemoteDir(base string, at time.Time, folder, client string) string {
	parts := []string{base, at.Format("2006")}
	if folder = strings.Trim(folder, "/"); folder != "" {
		parts = append(parts, folder)
	}
	parts = append(parts, at.Format("Jan"), strings.ToLower(client))
	return path.Join(parts...)
}

// UniqueName returns <base>.zip, or the first free <base>(n).zip when the
// name is taken. Listing entries may be bare names or full paths.
func UniqueName(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		taken[path.Base(e)] = struct{}{}
	}

	name := base + ".zip"
	for n := 1; ; n++ {
		if _, ok := taken[name]; !ok {
			return name
		}
		name = fmt.Sprintf("%s(%d).zip", base, n)
	}
}
