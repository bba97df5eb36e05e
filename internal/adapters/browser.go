package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// chromiumHistoryGlobs maps a window app class to the glob(s) under the
// user's home directory where that browser keeps its history DB. Chromium
// derivatives all use the same "History" sqlite schema.
var chromiumHistoryGlobs = map[string][]string{
	"google-chrome":     {".config/google-chrome/*/History"},
	"chromium":          {".config/chromium/*/History"},
	"brave-browser":     {".config/BraveSoftware/Brave-Browser/*/History"},
	"microsoft-edge":    {".config/microsoft-edge/*/History"},
	"vivaldi":           {".config/vivaldi/*/History"},
}

// ChromiumBrowserURL reads the newest matching browser's History database
// in read-only/immutable mode, so the live browser's own connection is
// never blocked (spec.md section 4.A).
type ChromiumBrowserURL struct{}

var _ BrowserURLProvider = ChromiumBrowserURL{}

func (ChromiumBrowserURL) RecentDomain(ctx context.Context, appClass string) (string, error) {
	globs, ok := chromiumHistoryGlobs[strings.ToLower(appClass)]
	if !ok {
		return "", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}

	dbPath, err := newestMatch(home, globs)
	if err != nil || dbPath == "" {
		return "", nil
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return "", nil
	}
	defer db.Close()

	var url string
	row := db.QueryRowContext(ctx,
		`SELECT url FROM urls ORDER BY last_visit_time DESC LIMIT 1`)
	if err := row.Scan(&url); err != nil {
		return "", nil
	}

	return hostOf(url), nil
}

func newestMatch(base string, globs []string) (string, error) {
	var candidates []string
	for _, g := range globs {
		matches, err := filepath.Glob(filepath.Join(base, g))
		if err != nil {
			continue
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		fi, erri := os.Stat(candidates[i])
		fj, errj := os.Stat(candidates[j])
		if erri != nil || errj != nil {
			return false
		}
		return fi.ModTime().After(fj.ModTime())
	})

	return candidates[0], nil
}

// hostOf extracts the host from a URL and strips a leading "www.".
func hostOf(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.LastIndex(rest, "@"); idx >= 0 {
		rest = rest[idx+1:]
	}
	rest = strings.TrimPrefix(rest, "www.")
	return rest
}
