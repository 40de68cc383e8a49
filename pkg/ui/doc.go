// Package ui prints the CLI's human-facing status lines. Colors follow the
// NO_COLOR convention and can be switched off with SetColor.
package ui
