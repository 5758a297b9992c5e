package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var nonDigitRegex = regexp.MustCompile("[^0-9]")

// ParseIntOr parses s as a base 10 integer, returning fallback on failure
func ParseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func ParseIntOrZero(s string) int {
	return ParseIntOr(s, 0)
}

func ParseIntOrMax(s string) int {
	return ParseIntOr(s, math.MaxInt)
}

func DigitsOnly(s string) string {
	return nonDigitRegex.ReplaceAllString(s, "")
}
