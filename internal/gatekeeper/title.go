// Package gatekeeper contains the pure validators that gate listing intake:
// TitleSanitizer, ProfitFloor, MobileEnforcer, and STREnforcer. None of them
// perform I/O; all are deterministic and safe to share across goroutines.
package gatekeeper

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxTitleLength is the marketplace title limit.
const MaxTitleLength = 80

// brandModelTargetPosition is the window search ranking weighs most heavily.
const brandModelTargetPosition = 30

var (
	junkCharsRe    = regexp.MustCompile(`[!*~@#$%^&]{2,}`)
	specialCharsRe = regexp.MustCompile(`[^\w\s\-&/.,'+()#]`)
	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
)

// bannedWords are spam terms that hurt search ranking. Two-word phrases are
// checked before single words.
var bannedWords = map[string]struct{}{
	"l@@k": {}, "look!": {}, "look!!": {}, "wow": {}, "wow!": {},
	"must see": {}, "a+++": {}, "a++": {},
	"nr": {}, "no reserve": {}, "free shipping": {}, "fast shipping": {},
	"hot": {}, "sexy": {},
	"rare!": {}, "amazing": {}, "incredible": {}, "awesome": {}, "perfect": {},
	"beautiful": {}, "gorgeous": {}, "stunning": {},
	"excellent!": {}, "great!": {}, "nice!": {}, "cool!": {},
}

// knownAcronyms stay uppercase through case normalization.
var knownAcronyms = map[string]struct{}{
	"nib": {}, "nwt": {}, "nwb": {}, "nwot": {}, "euc": {}, "vgc": {}, "guc": {},
	"oem": {}, "oob": {},
	"usb": {}, "hdmi": {}, "led": {}, "lcd": {}, "dvd": {}, "cd": {}, "pc": {},
	"tv": {}, "ac": {}, "dc": {},
	"xl": {}, "xxl": {}, "xs": {}, "sm": {}, "md": {}, "lg": {}, "oz": {}, "ml": {},
	"gb": {}, "tb": {}, "mb": {},
	"hp": {}, "ps": {}, "hd": {}, "sd": {}, "rgb": {}, "ddr": {}, "ssd": {}, "hdd": {},
	"rpm": {}, "mph": {},
	"nfl": {}, "nba": {}, "mlb": {}, "nhl": {}, "usa": {}, "uk": {}, "eu": {},
}

// TitleRequest is the sanitizer input.
type TitleRequest struct {
	Title string
	Brand string
	Model string
}

// TitleResult is the sanitizer output.
type TitleResult struct {
	Original          string   `json:"original"`
	Sanitized         string   `json:"sanitized"`
	Changes           []string `json:"changes"`
	Length            int      `json:"length"`
	BrandModelInFront bool     `json:"brand_model_in_front"`
}

// TitleSanitizer cleans listing titles for search ranking.
//
// Pipeline, in order: strip junk characters, remove banned spam words,
// normalize ALL-CAPS words to title case (acronyms excepted), front-load
// brand and model, enforce the 80-character limit.
type TitleSanitizer struct{}

// NewTitleSanitizer returns the sanitizer.
func NewTitleSanitizer() *TitleSanitizer { return &TitleSanitizer{} }

// Sanitize runs the full pipeline and reports which steps changed the title.
func (ts *TitleSanitizer) Sanitize(req TitleRequest) TitleResult {
	title := req.Title
	var changes []string

	if cleaned := ts.stripJunk(title); cleaned != title {
		changes = append(changes, "Removed junk characters")
		title = cleaned
	}

	if cleaned := ts.removeBannedWords(title); cleaned != title {
		changes = append(changes, "Removed spam words")
		title = cleaned
	}

	if cleaned := ts.normalizeCase(title); cleaned != title {
		changes = append(changes, "Normalized casing")
		title = cleaned
	}

	if req.Brand != "" || req.Model != "" {
		if cleaned := ts.frontLoadBrandModel(title, req.Brand, req.Model); cleaned != title {
			changes = append(changes, "Moved brand/model to front")
			title = cleaned
		}
	}

	if cleaned := ts.enforceLength(title); cleaned != title {
		changes = append(changes, "Trimmed to 80 chars")
		title = cleaned
	}

	title = strings.TrimSpace(multiSpaceRe.ReplaceAllString(title, " "))

	if len(changes) == 0 {
		changes = append(changes, "No changes needed")
	}

	return TitleResult{
		Original:          req.Title,
		Sanitized:         title,
		Changes:           changes,
		Length:            len([]rune(title)),
		BrandModelInFront: ts.brandModelInFront(title, req.Brand, req.Model),
	}
}

// stripJunk removes repeated special characters and non-standard symbols.
func (ts *TitleSanitizer) stripJunk(title string) string {
	title = junkCharsRe.ReplaceAllString(title, "")
	title = specialCharsRe.ReplaceAllString(title, "")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(title, " "))
}

// removeBannedWords drops known spam terms, two-word phrases first.
func (ts *TitleSanitizer) removeBannedWords(title string) string {
	words := strings.Fields(title)
	var result []string
	for i := 0; i < len(words); {
		if i+1 < len(words) {
			pair := strings.ToLower(words[i] + " " + words[i+1])
			if _, banned := bannedWords[pair]; banned {
				i += 2
				continue
			}
		}
		lower := strings.ToLower(words[i])
		_, banned := bannedWords[lower]
		if !banned {
			_, banned = bannedWords[strings.TrimRight(lower, "!")]
		}
		if banned {
			i++
			continue
		}
		result = append(result, words[i])
		i++
	}
	return strings.Join(result, " ")
}

// normalizeCase converts ALL-CAPS words to title case, preserving acronyms.
func (ts *TitleSanitizer) normalizeCase(title string) string {
	words := strings.Fields(title)
	for i, word := range words {
		clean := strings.Trim(word, ".,!-()#")
		if len([]rune(clean)) <= 1 || !isAlpha(clean) || clean != strings.ToUpper(clean) {
			continue
		}
		if _, acronym := knownAcronyms[strings.ToLower(clean)]; acronym {
			words[i] = strings.ToUpper(word)
		} else {
			words[i] = capitalize(word)
		}
	}
	return strings.Join(words, " ")
}

// frontLoadBrandModel removes the first occurrence of each and prefixes them.
func (ts *TitleSanitizer) frontLoadBrandModel(title, brand, model string) string {
	var prefix []string
	remaining := title

	for _, part := range []string{brand, model} {
		if part == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(part))
		if loc := re.FindStringIndex(remaining); loc != nil {
			remaining = strings.TrimSpace(remaining[:loc[0]] + remaining[loc[1]:])
		}
		prefix = append(prefix, part)
	}

	remaining = strings.TrimSpace(multiSpaceRe.ReplaceAllString(remaining, " "))
	remaining = strings.TrimLeft(remaining, "-–— ")

	if len(prefix) == 0 {
		return remaining
	}
	head := strings.Join(prefix, " ")
	if remaining == "" {
		return head
	}
	return head + " " + remaining
}

// enforceLength trims to 80 characters, breaking at a word boundary when the
// last space falls beyond the midpoint.
func (ts *TitleSanitizer) enforceLength(title string) string {
	runes := []rune(title)
	if len(runes) <= MaxTitleLength {
		return title
	}
	truncated := string(runes[:MaxTitleLength])
	if idx := strings.LastIndex(truncated, " "); idx > MaxTitleLength/2 {
		return strings.TrimRight(truncated[:idx], " ")
	}
	return strings.TrimRight(truncated, " ")
}

// brandModelInFront checks that brand and model both appear within the
// first 30 characters.
func (ts *TitleSanitizer) brandModelInFront(title, brand, model string) bool {
	runes := []rune(strings.ToLower(title))
	if len(runes) > brandModelTargetPosition {
		runes = runes[:brandModelTargetPosition]
	}
	front := string(runes)
	if brand != "" && !strings.Contains(front, strings.ToLower(brand)) {
		return false
	}
	if model != "" && !strings.Contains(front, strings.ToLower(model)) {
		return false
	}
	return true
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}
