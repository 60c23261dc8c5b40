// Package builder provides a fluent interface for declaring wizards and
// their steps without assembling the declaration structs by hand
package builder
