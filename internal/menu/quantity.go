package menu

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^\d+\s*`)

// servingWords are the units that grow with the table; anything else (glasses,
// cups, pieces) is left as written.
var servingWords = []string{"bowl", "plate", "platter"}

// ScaleQuantity adjusts a human-readable quantity for guestCount people.
// Counts of zero or less are treated as a single guest.
func ScaleQuantity(quantity string, guestCount int) string {
	if guestCount <= 1 {
		return quantity
	}
	scaled := strconv.Itoa(max(1, (guestCount+3)/4))

	fields := strings.Fields(quantity)
	if len(fields) > 1 && fields[0] == "1" {
		return scaled + " " + strings.Join(fields[1:], " ")
	}

	for _, word := range servingWords {
		if strings.Contains(quantity, word) {
			return scaled + " " + leadingNumber.ReplaceAllString(quantity, "")
		}
	}
	return quantity
}
