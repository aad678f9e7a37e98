package recs

import (
	"fmt"
)

const promptTemplate = `You are a knowledgeable expert on consumer products. For the given product, you must recommend 3 REAL, SPECIFIC alternative products that shoppers can purchase right now.

EXTREMELY IMPORTANT INSTRUCTIONS:
1. Recommend real, purchasable products only.
2. Do NOT recommend generic categories or placeholder names like "Premium Alternative" or "Best Value Option".
3. Each recommendation MUST include a specific brand and model name (e.g., "Sony WH-1000XM4", "Anker Soundcore Q30").
4. Categorize alternatives as: "Better Value Alternative", "Premium Alternative", and "Most Popular Alternative".
5. Format each recommendation exactly as shown in the example below.

EXAMPLE OUTPUT FORMAT:
**Better Value Alternative:** Anker Soundcore Q30 - $59.99
* Why it's better: More affordable with 90%% of the features of the original product.

**Premium Alternative:** Sony WH-1000XM4 - $299.99
* Why it's better: Superior noise cancellation and battery life.

**Most Popular Alternative:** Jabra Elite 85h - $179.99
* Why it's better: Excellent user reviews and a comfortable design.

Product: %s
Price: %s
Brand: %s
Category: %s

Task: Recommend 3 real product alternatives for the product above. Include brand names, model numbers, prices, and specific reasons why each is a good alternative. Format exactly as shown in the example above.`

// BuildPrompt renders the generation prompt for one product. The
// format instructions match what the parser's marker pass expects, but
// the parser never assumes the generator honored them.
func BuildPrompt(d ProductDescriptor) string {
	price := "Unknown"
	if d.Price > 0 {
		price = fmt.Sprintf("$%.2f", d.Price)
	}
	brand := d.Brand
	if brand == "" {
		brand = "Unknown"
	}
	return fmt.Sprintf(promptTemplate, d.Title, price, brand, d.CategoryOrDefault())
}
