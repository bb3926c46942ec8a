package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsxjacky/bktest/pkg/types"
)

var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"20060102",
	time.RFC3339,
}

// parseDate 解析日期字符串, 返回当天零点 (UTC)
func parseDate(dateStr string) (time.Time, error) {
	s := strings.TrimSpace(dateStr)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", dateStr)
}

// dateOnly 截断到日
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	return t.Format(types.DateLayout)
}

// calendarDays 返回 [start, end] 内的每一个自然日, start > end 时为空
func calendarDays(start, end time.Time) []time.Time {
	start, end = dateOnly(start), dateOnly(end)
	days := make([]time.Time, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
