package main

import "github.com/fatih/color"

var initialNoColor = color.NoColor

// restoreColor undoes --no-color, which sets fatih/color's global switch.
func restoreColor() {
	color.NoColor = initialNoColor
}
