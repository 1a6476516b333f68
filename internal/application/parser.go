package application

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// foldCaser is a package-level Unicode case folder. Folding handles
// multi-byte characters correctly, unlike strings.ToLower.
var foldCaser = cases.Fold()

// fuzzyNameThreshold is the minimum Levenshtein similarity for a judge's
// rendering of a contestant name to count as that contestant.
const fuzzyNameThreshold = 0.8

// ParsedRanking is the result of interpreting a judge's response.
type ParsedRanking struct {
	// Order lists every successful contestant exactly once, best first.
	Order []string
	// Reasoning is the judge's explanation, or the raw response when no
	// structured reasoning could be extracted.
	Reasoning string
	// Degraded reports that the structured parse failed and heuristics
	// or the input-order fallback produced the result.
	Degraded bool
}

// JudgeOutputParser turns free-form judge responses into rankings. It
// never fails: structured JSON is preferred, free-text mention mining is
// the middle ground, and input order is the terminal fallback, so a
// confused judge degrades a round instead of crashing it.
type JudgeOutputParser struct{}

// NewJudgeOutputParser creates a parser.
func NewJudgeOutputParser() *JudgeOutputParser {
	return &JudgeOutputParser{}
}

// judgeResponse is the JSON contract the judge prompt requests.
type judgeResponse struct {
	Rankings []struct {
		ModelName string `json:"model_name"`
		Rank      int    `json:"rank"`
	} `json:"rankings"`
	Reasoning string `json:"reasoning"`
}

// Parse interprets a judge's raw response against the successful
// contestants for the round. The returned Order is always a permutation
// of exactly the given contestants: resolved mentions lead, and any
// contestant the judge failed to mention is appended in input order.
func (p *JudgeOutputParser) Parse(raw string, contestants []string) ParsedRanking {
	if len(contestants) == 0 {
		return ParsedRanking{Order: []string{}, Reasoning: strings.TrimSpace(raw), Degraded: true}
	}

	if result, ok := p.parseJSON(raw, contestants); ok {
		return result
	}
	if result, ok := p.parseMentions(raw, contestants); ok {
		return result
	}

	// Terminal fallback: the judge said nothing usable, so the round
	// keeps the input order and the raw text as reasoning.
	order := make([]string, len(contestants))
	copy(order, contestants)
	return ParsedRanking{Order: order, Reasoning: strings.TrimSpace(raw), Degraded: true}
}

// parseJSON attempts the structured path: extract a JSON object, decode
// the rankings array, and resolve each entry to a contestant.
func (p *JudgeOutputParser) parseJSON(raw string, contestants []string) (ParsedRanking, bool) {
	jsonStr := extractJSONObject(raw)
	if jsonStr == "" {
		return ParsedRanking{}, false
	}

	var resp judgeResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil || len(resp.Rankings) == 0 {
		return ParsedRanking{}, false
	}

	entries := make([]struct {
		name string
		rank int
	}, 0, len(resp.Rankings))
	for i, r := range resp.Rankings {
		name, ok := resolveContestant(r.ModelName, contestants)
		if !ok {
			continue
		}
		rank := r.Rank
		if rank <= 0 {
			rank = i + 1 // array position stands in for a missing rank
		}
		entries = append(entries, struct {
			name string
			rank int
		}{name, rank})
	}
	if len(entries) == 0 {
		return ParsedRanking{}, false
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })

	seen := make(map[string]struct{}, len(contestants))
	order := make([]string, 0, len(contestants))
	for _, e := range entries {
		if _, dup := seen[e.name]; dup {
			continue
		}
		seen[e.name] = struct{}{}
		order = append(order, e.name)
	}
	degraded := appendUnmentioned(&order, seen, contestants)

	reasoning := strings.TrimSpace(resp.Reasoning)
	if reasoning == "" {
		reasoning = strings.TrimSpace(raw)
	}
	return ParsedRanking{Order: order, Reasoning: reasoning, Degraded: degraded}, true
}

// positionMarkerRe matches references like "#2", "answer 2", or
// "contestant #2" in free-text judgments.
var positionMarkerRe = regexp.MustCompile(`(?i)(?:#|\b(?:answer|contestant|model|response)\s+#?)(\d+)\b`)

// parseMentions mines the response text for contestant mentions, by name
// or by position marker, and ranks contestants in order of first mention.
func (p *JudgeOutputParser) parseMentions(raw string, contestants []string) (ParsedRanking, bool) {
	folded := foldCaser.String(raw)

	type mention struct {
		name   string
		offset int
	}
	var mentions []mention

	for _, name := range contestants {
		if off := indexWord(folded, foldCaser.String(name)); off >= 0 {
			mentions = append(mentions, mention{name: name, offset: off})
		}
	}

	for _, m := range positionMarkerRe.FindAllStringSubmatchIndex(folded, -1) {
		n, err := strconv.Atoi(folded[m[2]:m[3]])
		if err != nil || n < 1 || n > len(contestants) {
			continue
		}
		mentions = append(mentions, mention{name: contestants[n-1], offset: m[0]})
	}

	if len(mentions) == 0 {
		return ParsedRanking{}, false
	}

	sort.SliceStable(mentions, func(i, j int) bool { return mentions[i].offset < mentions[j].offset })

	seen := make(map[string]struct{}, len(contestants))
	order := make([]string, 0, len(contestants))
	for _, m := range mentions {
		if _, dup := seen[m.name]; dup {
			continue
		}
		seen[m.name] = struct{}{}
		order = append(order, m.name)
	}
	appendUnmentioned(&order, seen, contestants)

	return ParsedRanking{Order: order, Reasoning: strings.TrimSpace(raw), Degraded: true}, true
}

// appendUnmentioned adds contestants the judge never referenced, in
// input order, and reports whether any were missing.
func appendUnmentioned(order *[]string, seen map[string]struct{}, contestants []string) bool {
	missing := false
	for _, name := range contestants {
		if _, ok := seen[name]; !ok {
			*order = append(*order, name)
			missing = true
		}
	}
	return missing
}

// resolveContestant maps a judge-written name to a roster contestant.
// Exact folded match wins; "contestant #2" style labels resolve by
// position; otherwise the closest name within the Levenshtein threshold
// is taken.
func resolveContestant(written string, contestants []string) (string, bool) {
	target := foldCaser.String(strings.TrimSpace(written))
	if target == "" {
		return "", false
	}

	for _, name := range contestants {
		if foldCaser.String(name) == target {
			return name, true
		}
	}

	if m := positionMarkerRe.FindStringSubmatch(target); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(contestants) {
			return contestants[n-1], true
		}
	}

	best, bestScore := "", 0.0
	for _, name := range contestants {
		score := nameSimilarity(foldCaser.String(name), target)
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore >= fuzzyNameThreshold {
		return best, true
	}
	return "", false
}

// nameSimilarity returns a 0-1 similarity based on Levenshtein distance
// over runes.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// indexWord finds needle in haystack at a word boundary, returning the
// byte offset or -1. Boundary checks stop short names from matching
// inside unrelated words.
func indexWord(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	for from := 0; ; {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return -1
		}
		abs := from + idx
		if boundaryBefore(haystack, abs) && boundaryAfter(haystack, abs+len(needle)) {
			return abs
		}
		from = abs + 1
	}
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// extractJSONObject pulls the first JSON object out of a model response,
// handling markdown code blocks and surrounding prose.
func extractJSONObject(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += 3
		if nl := strings.Index(response[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(response[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	return balancedJSON(response, '{', '}')
}

// balancedJSON scans for a balanced JSON value delimited by open/close,
// respecting strings and escapes.
func balancedJSON(response string, open, close byte) string {
	start := strings.IndexByte(response, open)
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escapeNext := false
	for i := start; i < len(response); i++ {
		char := response[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch char {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
