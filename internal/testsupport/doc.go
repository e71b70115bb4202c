// Package testsupport holds fixtures shared by package tests: temp-dir
// configs, an opened store, and game directory builders.
package testsupport
