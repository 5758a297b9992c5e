package util

import (
	"time"
)

var hongKong *time.Location

func init() {
	location, err := time.LoadLocation("Asia/Hong_Kong")
	if err != nil {
		location = time.FixedZone("HKT", 8*60*60)
	}
	hongKong = location
}

func HongKongTime(t time.Time) time.Time {
	return t.In(hongKong)
}

// DateKey formats the Hong Kong calendar date of t as yyyyMMdd
func DateKey(t time.Time) string {
	return HongKongTime(t).Format("20060102")
}

// ParseHongKongLocal parses a zone-less timestamp as Hong Kong local time
func ParseHongKongLocal(layout string, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, hongKong)
}
