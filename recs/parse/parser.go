// Package parse extracts structured recommendation records from the
// free-form prose a text generator returns. The generator is asked for
// a fixed format but is not contractually bound to it, so extraction
// is layered: a structured-marker pass, then a heuristic paragraph
// pass, then a plausibility filter. Parse never fails; unusable input
// yields an empty slice.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/recwise/recwise/recs"
)

const (
	minParagraphLen = 15
	minTitleLen     = 4
	maxSentenceLen  = 100
)

// Defaults applied to model-derived records when the prose carries no
// rating metadata.
const (
	defaultRating      = "4.5"
	defaultReviewCount = "100+ reviews"
)

// genericTitles are non-answers: the generator is instructed never to
// produce them, so their presence means there is no real product to
// surface.
var genericTitles = map[string]struct{}{
	"premium alternative":      {},
	"better value alternative": {},
	"most popular alternative": {},
	"best value option":        {},
	"most popular choice":      {},
	"budget option":            {},
	"premium option":           {},
	"popular choice":           {},
}

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	sentenceSplit  = regexp.MustCompile(`[.!?]`)
	pricePattern   = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)`)
)

// markerPatterns recognize the emphasis convention the prompt asks
// for: a bolded label tag, the product name, then a dollar amount.
var markerPatterns = []struct {
	label recs.Label
	re    *regexp.Regexp
}{
	{recs.LabelBetterValue, regexp.MustCompile(`(?i)\*\*Better Value Alternative:?\*\*:?\s*(.+?)\s*-\s*\$`)},
	{recs.LabelPremium, regexp.MustCompile(`(?i)\*\*Premium Alternative:?\*\*:?\s*(.+?)\s*-\s*\$`)},
	{recs.LabelMostPopular, regexp.MustCompile(`(?i)\*\*Most Popular Alternative:?\*\*:?\s*(.+?)\s*-\s*\$`)},
}

// keywordClasses classify an untagged paragraph by vocabulary. Order
// matters: the first matching class wins, so premium vocabulary is
// checked before value and popularity vocabulary.
var keywordClasses = []struct {
	label recs.Label
	re    *regexp.Regexp
}{
	{recs.LabelPremium, regexp.MustCompile(`(?i)premium|higher|quality|superior`)},
	{recs.LabelBetterValue, regexp.MustCompile(`(?i)value|budget|cheaper|affordable|cost`)},
	{recs.LabelMostPopular, regexp.MustCompile(`(?i)popular|rated|best.?selling|customer|review`)},
}

// titleMatchers are title-shaped patterns tried in order; the first
// match with a plausible capture wins. Patterns progress from the
// prompt's exact format toward looser and looser shapes.
var titleMatchers = []struct {
	name string
	re   *regexp.Regexp
}{
	{"numbered_before_price", regexp.MustCompile(`\d+\.\s*(.*?)(?:\s*-\s*\$|\s*:\s*\$|\s*\(\$|\s+\$)`)},
	{"label_prefixed", regexp.MustCompile(`(?i)(?:Better Value|Premium|Most Popular) Alternative:\s*(.*?)(?:\s*-\s*\$|\s+\$)`)},
	{"bold_before_price", regexp.MustCompile(`\*\*(.*?)\*\*\s*-\s*\$`)},
	{"numbered_colon", regexp.MustCompile(`\d+\.\s*([^:]+):`)},
	{"colon_lead", regexp.MustCompile(`(?m)^([^:,*]+):`)},
	{"parenthetical_lead", regexp.MustCompile(`(?m)^(.+?)\s*\(`)},
	{"dash_lead", regexp.MustCompile(`(?m)^(.+?)\s*-`)},
	{"price_lead", regexp.MustCompile(`(?m)^(.+?)\s*\$`)},
}

// reasonMatchers extract the "why it's better" clause, in order of
// specificity.
var reasonMatchers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\*?\s*Why it'?s better:\s*([^.\n]+)`),
	regexp.MustCompile(`(?i)key features:\s*([^.\n]+)`),
	regexp.MustCompile(`(?i)benefits:\s*([^.\n]+)`),
}

// candidate is a record under construction, before label arbitration.
type candidate struct {
	title  string
	price  string
	reason string
	label  recs.Label // empty when not explicitly tagged
}

// Parse extracts up to three recommendation records from model prose.
// The descriptor supplies the price default for records mentioning no
// amount. The result is ordered by label precedence and carries at
// most one record per label; completing a short result is the fallback
// synthesizer's job, not the parser's.
func Parse(text string, d recs.ProductDescriptor) []recs.Record {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	paragraphs := paragraphSplit.Split(text, -1)

	candidates := markerPass(paragraphs)
	if len(candidates) < len(recs.Labels) {
		candidates = append(candidates, paragraphPass(paragraphs, candidates)...)
	}

	return assemble(candidates, d)
}

// markerPass collects paragraphs that follow the prompt's bolded label
// convention. The label is read directly from the tag.
func markerPass(paragraphs []string) []candidate {
	var out []candidate
	seen := map[recs.Label]struct{}{}
	for _, p := range paragraphs {
		for _, mp := range markerPatterns {
			m := mp.re.FindStringSubmatch(p)
			if m == nil {
				continue
			}
			if _, dup := seen[mp.label]; dup {
				continue
			}
			seen[mp.label] = struct{}{}
			out = append(out, candidate{
				title:  strings.TrimSpace(m[1]),
				price:  extractPrice(p),
				reason: extractReason(p),
				label:  mp.label,
			})
		}
	}
	return out
}

// paragraphPass is engaged when the marker pass under-produces. Each
// sufficiently long paragraph is classified by vocabulary and mined
// for a title, price and rationale.
func paragraphPass(paragraphs []string, existing []candidate) []candidate {
	used := map[string]struct{}{}
	for _, c := range existing {
		used[strings.ToLower(c.title)] = struct{}{}
	}

	var out []candidate
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if len(p) < minParagraphLen {
			continue
		}

		var label recs.Label
		for _, kc := range keywordClasses {
			if kc.re.MatchString(p) {
				label = kc.label
				break
			}
		}
		if label == "" {
			continue
		}

		title := extractTitle(p)
		if title == "" {
			continue
		}
		if _, dup := used[strings.ToLower(title)]; dup {
			continue
		}
		used[strings.ToLower(title)] = struct{}{}

		out = append(out, candidate{
			title:  title,
			price:  extractPrice(p),
			reason: extractReason(p),
			label:  label,
		})
	}
	return out
}

func extractTitle(text string) string {
	for _, tm := range titleMatchers {
		m := tm.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		title := strings.Trim(strings.TrimSpace(m[1]), "*")
		title = strings.TrimSpace(title)
		if len(title) >= minTitleLen {
			return title
		}
	}

	// Last resort: the first sentence, when it is short enough to be a
	// product name rather than a paragraph of prose.
	first := strings.TrimSpace(sentenceSplit.Split(text, 2)[0])
	if len(first) >= minTitleLen && len(first) < maxSentenceLen {
		return first
	}
	return ""
}

func extractPrice(text string) string {
	if m := pricePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractReason(text string) string {
	for _, re := range reasonMatchers {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	// No labeled clause: take the final sentence, which in practice
	// carries the recommendation's justification.
	sentences := sentenceSplit.Split(text, -1)
	for i := len(sentences) - 1; i > 0; i-- {
		if s := strings.TrimSpace(sentences[i]); s != "" {
			return s
		}
	}
	return ""
}

// assemble filters implausible candidates, arbitrates labels and
// orders the survivors by label precedence.
func assemble(candidates []candidate, d recs.ProductDescriptor) []recs.Record {
	claimed := map[recs.Label]recs.Record{}

	for _, c := range candidates {
		if len(c.title) < minTitleLen {
			continue
		}
		if _, generic := genericTitles[strings.ToLower(strings.TrimSpace(c.title))]; generic {
			continue
		}

		label := c.label
		if label == "" {
			label = classify(c.title + " " + c.reason)
		}
		if label == "" {
			label = firstUnclaimed(claimed)
		}
		if label == "" {
			continue // all three labels taken
		}
		if _, dup := claimed[label]; dup {
			continue // later claimant of a taken label is dropped
		}

		claimed[label] = finishRecord(c, label, d)
	}

	var out []recs.Record
	for _, label := range recs.Labels {
		if rec, ok := claimed[label]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func classify(text string) recs.Label {
	for _, kc := range keywordClasses {
		if kc.re.MatchString(text) {
			return kc.label
		}
	}
	return ""
}

func firstUnclaimed(claimed map[recs.Label]recs.Record) recs.Label {
	for _, label := range recs.Labels {
		if _, ok := claimed[label]; !ok {
			return label
		}
	}
	return ""
}

func finishRecord(c candidate, label recs.Label, d recs.ProductDescriptor) recs.Record {
	price := c.price
	if price == "" {
		if d.Price > 0 {
			price = fmt.Sprintf("%.2f", d.Price)
		} else {
			price = "0.00"
		}
	}

	reason := c.reason
	if reason == "" {
		reason = fmt.Sprintf("%s alternative for this product category", label.Qualifier())
	}

	var brand string
	if i := strings.IndexByte(c.title, ' '); i > 0 {
		brand = c.title[:i]
	}

	return recs.Record{
		Title:       c.title,
		Price:       price,
		Reason:      reason,
		Label:       label,
		Brand:       brand,
		Rating:      defaultRating,
		ReviewCount: defaultReviewCount,
	}
}
