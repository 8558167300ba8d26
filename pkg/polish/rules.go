package polish

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

// Correction markers: the speaker disowns what came before, so the
// clause between the previous sentence break and the marker is dropped.
var correctionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`不对[，,\s]*`),
	regexp.MustCompile(`我说错了[，,\s]*`),
	regexp.MustCompile(`改一下[，,\s]*`),
	regexp.MustCompile(`纠正一下[，,\s]*`),
	regexp.MustCompile(`(?i)\bno wait[,\s]*`),
	regexp.MustCompile(`(?i)\bI mean[,\s]*`),
	regexp.MustCompile(`(?i)\bcorrection[,\s]*`),
	regexp.MustCompile(`(?i)\blet me rephrase[,\s]*`),
}

var sentenceBreak = regexp.MustCompile(`[，,。.！!？?\s]`)

// Standalone fillers removed outright.
var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`嗯+`),
	regexp.MustCompile(`呃+`),
	regexp.MustCompile(`啊{2,}`),
	regexp.MustCompile(`哦+`),
	regexp.MustCompile(`额+`),
	regexp.MustCompile(`怎么说呢[，,\s]*`),
	regexp.MustCompile(`(?i)\bum+\b`),
	regexp.MustCompile(`(?i)\buh+\b`),
	regexp.MustCompile(`(?i)\byou know\b`),
	regexp.MustCompile(`음+`),
	regexp.MustCompile(`어{2,}`),
}

// Discourse fillers that only count as filler when a comma follows;
// the comma is kept so downstream punctuation cleanup can merge it.
var commaFillers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blike\s*,`),
	regexp.MustCompile(`(?i)\bbasically\s*,`),
	regexp.MustCompile(`(?i)\bliterally\s*,`),
	regexp.MustCompile(`(?i)\bso\s*,`),
}

var (
	multiSpace     = regexp.MustCompile(`\s+`)
	leadingPunct   = regexp.MustCompile(`^[\s，,。.！!？?、;；:：]+`)
	doubleComma    = regexp.MustCompile(`[，,]\s*[，,]`)
	doublePeriod   = regexp.MustCompile(`[。.]\s*[。.]`)
	trailingClause = regexp.MustCompile(`[.!?。！？,，;；:：]$`)

	listOrdinal  = regexp.MustCompile(`第[一二三四五六七八九十]+[步点条个]`)
	listSequence = regexp.MustCompile(`([。.！!？?\s])(首先|其次|然后|最后|接着|之后)`)
	listEnglish  = regexp.MustCompile(`(?i)\b(first|second|third|then|next|finally)\b`)
	multiNewline = regexp.MustCompile(`\n+`)
)

// RulePolisher is the deterministic, language-mixed cleanup stage. It
// needs no network and always succeeds, which makes it the fallback
// when heavier polishers are unavailable.
type RulePolisher struct{}

func NewRulePolisher() *RulePolisher { return &RulePolisher{} }

func (p *RulePolisher) Name() string { return "rules" }

func (p *RulePolisher) Polish(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	out := applyCorrections(text)

	for _, re := range fillerPatterns {
		out = re.ReplaceAllString(out, " ")
	}
	for _, re := range commaFillers {
		out = re.ReplaceAllString(out, ",")
	}

	out = multiSpace.ReplaceAllString(out, " ")
	out = leadingPunct.ReplaceAllString(out, "")
	out = doubleComma.ReplaceAllString(out, "，")
	out = doublePeriod.ReplaceAllString(out, "。")
	out = strings.TrimSpace(out)

	out = formatList(out)

	if out != "" && !trailingClause.MatchString(out) {
		if containsCJK(out) {
			out += "。"
		} else {
			out += "."
		}
	}
	return out, nil
}

// applyCorrections drops the clause a correction marker retracts:
// everything between the last sentence break before the marker and the
// end of the marker itself.
func applyCorrections(text string) string {
	for _, marker := range correctionMarkers {
		loc := marker.FindStringIndex(text)
		if loc == nil {
			continue
		}
		before := text[:loc[0]]
		breaks := sentenceBreak.FindAllStringIndex(before, -1)
		cut := 0
		if len(breaks) > 0 {
			cut = breaks[len(breaks)-1][1]
		}
		text = text[:cut] + text[loc[1]:]
	}
	return strings.TrimSpace(text)
}

// formatList puts enumerated steps on their own lines when the text
// carries a list cadence.
func formatList(text string) string {
	if !listOrdinal.MatchString(text) &&
		!listSequence.MatchString(text) &&
		!listEnglish.MatchString(text) {
		return text
	}
	out := listOrdinal.ReplaceAllString(text, "\n$0")
	out = listSequence.ReplaceAllString(out, "$1\n$2")
	out = multiNewline.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}

func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
