// Package activity derives structured timeline data from raw window
// events: sessions, breaks, per-category metrics, and (via narrative.go) an
// AI-generated narrative with its post-processing contract (spec.md
// section 4.G).
package activity

import (
	"strings"
	"time"

	"github.com/screendiary/screendiary/internal/types"
)

const (
	defaultGapThreshold = 30 * time.Second
	defaultMinBreak      = 300 * time.Second
	maxWindowTitles      = 10
)

// categoryKeywords maps lowercase app-class substrings to a category
// bucket (spec.md section 6, "Category keyword map"). Direct (exact)
// matches take precedence over substring matches; anything unmatched
// falls to "other".
var categoryKeywords = map[string][]string{
	"coding":        {"code", "vscode", "jetbrains", "idea", "pycharm", "goland", "vim", "neovim", "emacs", "sublime_text", "kdevelop"},
	"terminal":      {"konsole", "gnome-terminal", "alacritty", "kitty", "xterm", "terminal"},
	"browser":       {"firefox", "chromium", "google-chrome", "brave-browser", "microsoft-edge", "vivaldi"},
	"communication": {"slack", "discord", "telegram", "signal", "thunderbird", "teams"},
	"media":         {"vlc", "spotify", "mpv", "rhythmbox"},
	"files":         {"dolphin", "nautilus", "files", "thunar"},
	"office":        {"libreoffice", "writer", "calc", "impress", "word", "excel", "powerpoint"},
}

var directCategory map[string]string

func init() {
	directCategory = make(map[string]string)
	for category, keywords := range categoryKeywords {
		for _, k := range keywords {
			directCategory[k] = category
		}
	}
}

// CategoryFor resolves an app class to its category bucket: exact match
// first, then substring match, default "other".
func CategoryFor(appClass string) string {
	lower := strings.ToLower(appClass)
	if cat, ok := directCategory[lower]; ok {
		return cat
	}
	for category, keywords := range categoryKeywords {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return category
			}
		}
	}
	return "other"
}

// MergeSessions walks chronologically sorted events and extends the
// current session while the app class is unchanged and the gap to the
// previous event is within gapThreshold; otherwise it finalizes the
// session and starts a new one (spec.md section 4.G).
func MergeSessions(events []types.WindowEvent, gapThreshold time.Duration) []types.ActivitySession {
	if gapThreshold <= 0 {
		gapThreshold = defaultGapThreshold
	}
	if len(events) == 0 {
		return nil
	}

	var sessions []types.ActivitySession
	cur := newSession(events[0])

	for _, ev := range events[1:] {
		gap := ev.Timestamp.Sub(cur.End)
		if ev.AppClass == cur.AppClass && gap <= gapThreshold {
			extend(&cur, ev)
			continue
		}
		sessions = append(sessions, cur)
		cur = newSession(ev)
	}
	sessions = append(sessions, cur)
	return sessions
}

func newSession(ev types.WindowEvent) types.ActivitySession {
	s := types.ActivitySession{
		AppClass: ev.AppClass, Category: CategoryFor(ev.AppClass),
		Start: ev.Timestamp, End: ev.Timestamp, EventCount: 1,
	}
	addTitle(&s, ev.WindowTitle)
	addDomain(&s, ev.BrowserDomain)
	return s
}

func extend(s *types.ActivitySession, ev types.WindowEvent) {
	s.End = ev.Timestamp
	s.EventCount++
	addTitle(s, ev.WindowTitle)
	addDomain(s, ev.BrowserDomain)
}

func addTitle(s *types.ActivitySession, title string) {
	if title == "" || len(s.WindowTitles) >= maxWindowTitles {
		return
	}
	for _, t := range s.WindowTitles {
		if t == title {
			return
		}
	}
	s.WindowTitles = append(s.WindowTitles, title)
}

func addDomain(s *types.ActivitySession, domain string) {
	if domain == "" {
		return
	}
	for _, d := range s.BrowserDomains {
		if d == domain {
			return
		}
	}
	s.BrowserDomains = append(s.BrowserDomains, domain)
}

// DetectBreaks emits one Break per gap at least minBreak between adjacent
// sessions (spec.md section 4.G).
func DetectBreaks(sessions []types.ActivitySession, minBreak time.Duration) []types.Break {
	if minBreak <= 0 {
		minBreak = defaultMinBreak
	}
	var breaks []types.Break
	for i := 1; i < len(sessions); i++ {
		gap := sessions[i].Start.Sub(sessions[i-1].End)
		if gap >= minBreak {
			breaks = append(breaks, types.Break{Start: sessions[i-1].End, End: sessions[i].Start})
		}
	}
	return breaks
}

// ComputeMetrics aggregates active time, break time, and per-category
// totals across sessions and breaks (spec.md section 4.G).
func ComputeMetrics(sessions []types.ActivitySession, breaks []types.Break) types.DayMetrics {
	m := types.DayMetrics{CategorySeconds: make(map[string]float64)}
	if len(sessions) == 0 {
		return m
	}

	m.FirstActivity = sessions[0].Start
	m.LastActivity = sessions[0].End
	for _, s := range sessions {
		active := s.End.Sub(s.Start).Seconds()
		m.ActiveSeconds += active
		m.CategorySeconds[s.Category] += active
		if s.Start.Before(m.FirstActivity) {
			m.FirstActivity = s.Start
		}
		if s.End.After(m.LastActivity) {
			m.LastActivity = s.End
		}
	}

	for _, b := range breaks {
		m.BreakSeconds += b.Seconds()
		m.BreakCount++
	}
	return m
}
