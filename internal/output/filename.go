package output

import (
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/ironsheep/capture-output-mcp/internal/capture"
)

// DefaultFilenamePattern names captures by date, time and title.
const DefaultFilenamePattern = "%Y-%m-%d_%H-%M-%S_${title}"

// FormatFilename expands pattern into a file name without extension.
//
// strftime specifiers (%Y, %m, %d, %H, %M, %S, ...) are filled from the
// capture time, or now when the capture has none. ${title} is replaced with
// the capture title. Characters that are not valid in file names are
// replaced with '_'.
func FormatFilename(pattern string, details capture.Details, now time.Time) string {
	if pattern == "" {
		pattern = DefaultFilenamePattern
	}
	when := details.CapturedAt
	if when.IsZero() {
		when = now
	}

	name := strftime.Format(pattern, when)
	title := strings.TrimSpace(details.Title)
	if title == "" {
		title = "capture"
	}
	name = strings.ReplaceAll(name, "${title}", title)
	name = sanitizeFilename(name)
	if name == "" {
		return "capture"
	}
	return name
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)
	return strings.Trim(name, " .")
}
