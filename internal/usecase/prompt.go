package usecase

import (
	"fmt"
	"strings"
)

const extractionInstructions = `You extract product listings from the text of e-commerce web pages.

Find every product on the page. For each product return:
- "name": the product name (required)
- "price": the price as a bare number without currency symbols, or null if not shown
- "currency": the ISO 4217 currency code, for example USD, GBP or EUR
- "image_urls": a list of absolute product image URLs
- "product_url": the direct link to the product page, if one is shown

Respond with a JSON array of product objects and nothing else. If the page has no products, respond with [].

Example:
[
  {
    "name": "Cotton T-Shirt",
    "price": 29.99,
    "currency": "USD",
    "image_urls": ["https://example.com/img1.jpg"],
    "product_url": "https://example.com/product/123"
  }
]`

// BuildPrompt returns the fixed instruction block and the content block for
// one page.
func BuildPrompt(pageURL, company, text string) (system, content string) {
	if strings.TrimSpace(company) == "" {
		company = "Unknown"
	}
	content = fmt.Sprintf(`Extract all products from this e-commerce page.

URL: %s
Company: %s

Page content:
%s

Respond with the JSON array only.`, pageURL, company, text)
	return extractionInstructions, content
}
