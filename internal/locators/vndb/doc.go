// Package vndb adapts the VNDB Kana HTTP API (POST /vn) to candidate.Locator.
package vndb
