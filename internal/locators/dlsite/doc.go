// Package dlsite adapts the DLsite suggest and product-info JSON endpoints to
// candidate.Locator. Codes look like RJ123456 (circle works), RE (English
// releases), VJ (brand works) and BJ (books).
package dlsite
