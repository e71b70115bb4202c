// Package language maps the language spellings users and sources use onto the
// two keys kura stores localized metadata under: "en" and "jp".
package language
