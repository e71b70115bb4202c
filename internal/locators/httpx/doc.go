// Package httpx is the JSON transport shared by the locators: one rate
// limiter and one response cache per source.
package httpx
