package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/screendiary/screendiary/internal/adapters"
	"github.com/screendiary/screendiary/internal/types"
)

const (
	compactGap      = 5 * time.Minute
	microSession    = 30 * time.Second
	blockMergeGap   = 2 * time.Minute
	minBlockMinutes = 15
	// compactMaxWindowTitles caps titles absorbed during session compaction
	// at 8, matching the original implementation's `_absorb` helper — a
	// tighter cap than MergeSessions' own 10, since a compacted block
	// already represents several merged sessions worth of titles.
	compactMaxWindowTitles = 8
)

// Summary is the parsed, post-processed result of generate_ai_summary.
type Summary struct {
	Text   string
	Blocks []types.NarrativeBlock
}

// rawBlock mirrors the model's JSON block shape before post-processing.
type rawBlock struct {
	TimeRange       string `json:"time_range"`
	DurationMinutes int    `json:"duration_minutes"`
	Label           string `json:"label"`
	Description     string `json:"description"`
	Category        string `json:"category"`
}

type rawSummary struct {
	Summary string     `json:"summary"`
	Blocks  []rawBlock `json:"blocks"`
}

// CompactSessions merges same-category neighbours separated by less than
// compactGap, then absorbs sessions shorter than microSession into their
// left neighbour and, failing that, their right neighbour (spec.md section
// 4.G step 1).
func CompactSessions(sessions []types.ActivitySession) []types.ActivitySession {
	if len(sessions) == 0 {
		return nil
	}

	merged := []types.ActivitySession{sessions[0]}
	for _, s := range sessions[1:] {
		last := &merged[len(merged)-1]
		if s.Category == last.Category && s.Start.Sub(last.End) < compactGap {
			mergeInto(last, s)
			continue
		}
		merged = append(merged, s)
	}

	return absorbMicroSessions(merged)
}

func mergeInto(dst *types.ActivitySession, src types.ActivitySession) {
	dst.End = src.End
	dst.EventCount += src.EventCount
	for _, t := range src.WindowTitles {
		addCompactTitle(dst, t)
	}
	for _, d := range src.BrowserDomains {
		addDomain(dst, d)
	}
}

// addCompactTitle mirrors addTitle but with compactMaxWindowTitles' tighter
// cap, used only while compacting sessions for the AI prompt.
func addCompactTitle(s *types.ActivitySession, title string) {
	if title == "" || len(s.WindowTitles) >= compactMaxWindowTitles {
		return
	}
	for _, t := range s.WindowTitles {
		if t == title {
			return
		}
	}
	s.WindowTitles = append(s.WindowTitles, title)
}

func absorbMicroSessions(sessions []types.ActivitySession) []types.ActivitySession {
	changed := true
	for changed {
		changed = false
		for i, s := range sessions {
			if s.End.Sub(s.Start) >= microSession {
				continue
			}
			if i > 0 {
				mergeInto(&sessions[i-1], s)
				sessions = append(sessions[:i], sessions[i+1:]...)
			} else if len(sessions) > 1 {
				absorbed := sessions[1]
				s.End = absorbed.End
				s.EventCount += absorbed.EventCount
				s.Category = absorbed.Category
				for _, t := range absorbed.WindowTitles {
					addCompactTitle(&s, t)
				}
				for _, d := range absorbed.BrowserDomains {
					addDomain(&s, d)
				}
				sessions[0] = s
				sessions = append(sessions[:1], sessions[2:]...)
			} else {
				continue
			}
			changed = true
			break
		}
	}
	return sessions
}

// BuildPrompt renders the fixed German system prompt and the per-day user
// prompt listing sessions and category totals (spec.md section 4.G step 2).
func BuildPrompt(sessions []types.ActivitySession, metrics types.DayMetrics) (systemPrompt, userPrompt string) {
	systemPrompt = `Du bist ein Assistent, der aus einer Liste von Aktivitaets-Sitzungen eine Tageszusammenfassung erstellt.
Regeln:
- Gruppiere nach Taetigkeit, nicht nach App-Kategorie.
- Bloecke duerfen sich zeitlich nicht ueberlappen.
- Jeder Block ist mindestens 15 Minuten lang, die Dauer ist ein Vielfaches von 15.
- Pausen ueber 15 Minuten werden als eigener Block mit der Kategorie "pause" dargestellt.
- Typischerweise 4 bis 10 Bloecke.
Antworte ausschliesslich als JSON-Objekt der Form:
{"summary": "...", "blocks": [{"time_range": "HH:MM-HH:MM", "duration_minutes": N, "label": "...", "description": "...", "category": "..."}]}`

	var b strings.Builder
	b.WriteString("Sitzungen:\n")
	for _, s := range sessions {
		minutes := int(s.End.Sub(s.Start).Minutes())
		b.WriteString(fmt.Sprintf("%s-%s [%s] %s (%dmin): %s",
			s.Start.Format("15:04"), s.End.Format("15:04"), s.Category, s.AppClass, minutes,
			strings.Join(s.WindowTitles, ", ")))
		if len(s.BrowserDomains) > 0 {
			b.WriteString(" | Domains: " + strings.Join(s.BrowserDomains, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nKategorien gesamt:\n")
	categories := make([]string, 0, len(metrics.CategorySeconds))
	for c := range metrics.CategorySeconds {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		b.WriteString(fmt.Sprintf("%s: %dmin\n", c, int(metrics.CategorySeconds[c]/60)))
	}

	return systemPrompt, b.String()
}

// GenerateSummary drives the full generate_ai_summary contract: compact,
// prompt, call with a json-mode/fallback/salvage chain, and post-process
// the returned blocks (spec.md section 4.G steps 1-4).
func GenerateSummary(ctx context.Context, chat adapters.ChatProvider, model string, sessions []types.ActivitySession, metrics types.DayMetrics) (*Summary, error) {
	compacted := CompactSessions(sessions)
	systemPrompt, userPrompt := BuildPrompt(compacted, metrics)

	raw, err := callAndParse(ctx, chat, model, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Text:   raw.Summary,
		Blocks: postprocessBlocks(raw.Blocks),
	}, nil
}

func callAndParse(ctx context.Context, chat adapters.ChatProvider, model, systemPrompt, userPrompt string) (*rawSummary, error) {
	resp, err := chat.Complete(ctx, model, systemPrompt, userPrompt, true)
	if err != nil {
		return nil, fmt.Errorf("activity: chat completion: %w", err)
	}

	var out rawSummary
	if err := json.Unmarshal([]byte(resp), &out); err == nil {
		return &out, nil
	}

	salvaged, ok := firstBalancedJSON(resp)
	if !ok {
		return nil, fmt.Errorf("activity: ai response was not valid JSON and no balanced object was found")
	}
	if err := json.Unmarshal([]byte(salvaged), &out); err != nil {
		return nil, fmt.Errorf("activity: salvaged JSON still invalid: %w", err)
	}
	return &out, nil
}

// firstBalancedJSON scans s for the first top-level balanced {...} object,
// respecting string literals and escapes so braces inside quoted strings
// don't throw off the depth count (spec.md section 9, "narrow salvage
// function").
func firstBalancedJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// postprocessBlocks implements _postprocess_blocks: parse time ranges,
// merge consecutive same-category blocks with a gap of at most 2 minutes,
// concatenate and dedupe descriptions, and recompute duration_minutes
// rounded to the nearest multiple of 15 with a floor of 15 (spec.md
// section 4.G step 4).
func postprocessBlocks(raw []rawBlock) []types.NarrativeBlock {
	if len(raw) == 0 {
		return nil
	}

	parsed := make([]types.NarrativeBlock, 0, len(raw))
	for _, r := range raw {
		start, end, ok := parseTimeRange(r.TimeRange)
		if !ok {
			continue
		}
		parsed = append(parsed, types.NarrativeBlock{
			StartMinute: start, EndMinute: end, Label: r.Label,
			Description: r.Description, Category: r.Category,
		})
	}
	if len(parsed) == 0 {
		return nil
	}

	merged := []types.NarrativeBlock{parsed[0]}
	for _, b := range parsed[1:] {
		last := &merged[len(merged)-1]
		if b.Category == last.Category && b.StartMinute-last.EndMinute <= 2 {
			last.EndMinute = b.EndMinute
			last.Description = mergeDescriptions(last.Description, b.Description)
			continue
		}
		merged = append(merged, b)
	}

	for i := range merged {
		merged[i].DurationMinutes = roundToNearestMultipleOf15(merged[i].EndMinute - merged[i].StartMinute)
		merged[i].TimeRange = formatMinuteRange(merged[i].StartMinute, merged[i].EndMinute)
	}
	return merged
}

func parseTimeRange(s string) (startMin, endMin int, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok1 := parseHHMM(parts[0])
	end, ok2 := parseHHMM(parts[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return start, end, true
}

func parseHHMM(s string) (int, bool) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}

func formatMinuteRange(startMin, endMin int) string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", startMin/60, startMin%60, endMin/60, endMin%60)
}

// roundToNearestMultipleOf15 rounds to the nearest 15-minute multiple,
// with a floor of 15 minutes (spec.md section 4.G step 4).
func roundToNearestMultipleOf15(minutes int) int {
	if minutes <= 0 {
		return minBlockMinutes
	}
	rounded := ((minutes + 7) / 15) * 15
	if rounded < minBlockMinutes {
		return minBlockMinutes
	}
	return rounded
}

// mergeDescriptions concatenates two descriptions, dropping an exact
// duplicate and ensuring the result ends with terminal punctuation.
func mergeDescriptions(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" {
		return punctuate(b)
	}
	if b == "" || a == b {
		return punctuate(a)
	}
	return punctuate(a) + " " + punctuate(b)
}

func punctuate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	if last == '.' || last == '!' || last == '?' {
		return s
	}
	return s + "."
}

// forbiddenMotdTerms are substrings that would leak duration/clock-time
// information into a motd (spec.md section 4.G, "generate_motd").
var forbiddenMotdTerms = []string{
	"stunde", "minute", "uhr", "dauer", ":",
}

// rawMotd mirrors the model's JSON motd shape, matching the original
// implementation's `{"motd": "..."}` call shape rather than plain text.
type rawMotd struct {
	Motd string `json:"motd"`
}

// GenerateMotd produces a single short German motivational line, greeting by
// local hour; a line that mentions a duration or clock time is replaced by
// the bare greeting (spec.md section 4.G, "generate_motd"). The model is asked for a JSON object
// (`{"motd": "..."}`), with the same direct-parse/salvage fallback as
// GenerateSummary, matching the original's `_call_ai_json` call shape.
func GenerateMotd(ctx context.Context, chat adapters.ChatProvider, model, summaryText string, now time.Time) (string, error) {
	greeting := "Guten Abend"
	switch {
	case now.Hour() < 12:
		greeting = "Guten Morgen"
	case now.Hour() < 17:
		greeting = "Guten Tag"
	}

	summaryContext := summaryText
	if summaryContext == "" {
		summaryContext = "Keine Zusammenfassung vorhanden."
	}

	systemPrompt := fmt.Sprintf(`Erstelle eine kurze, motivierende Tagesnachricht basierend auf der Zusammenfassung des Arbeitstages.
Tageszeit-Gruss: %s

Regeln:
- Maximal 1-2 Saetze
- Beginne mit "%s!"
- Beziehe dich inhaltlich auf die Taetigkeiten, NICHT auf Uhrzeiten oder Dauern
- Nenne KEINE Zeiten, Stunden, Minuten oder Dauern
- Freundlich, knapp, motivierend, auf Deutsch

Antworte ausschliesslich als JSON-Objekt der Form:
{"motd": "Die Tagesnachricht hier"}`, greeting, greeting)

	resp, err := chat.Complete(ctx, model, systemPrompt, summaryContext, true)
	if err != nil {
		return "", fmt.Errorf("activity: motd completion: %w", err)
	}

	var out rawMotd
	if err := json.Unmarshal([]byte(resp), &out); err != nil {
		salvaged, ok := firstBalancedJSON(resp)
		if !ok {
			return greeting + "!", nil
		}
		if err := json.Unmarshal([]byte(salvaged), &out); err != nil {
			return greeting + "!", nil
		}
	}

	line := strings.TrimSpace(out.Motd)
	lower := strings.ToLower(line)
	for _, term := range forbiddenMotdTerms {
		if strings.Contains(lower, term) {
			return greeting + "!", nil
		}
	}
	if line == "" {
		return greeting + "!", nil
	}
	return line, nil
}
