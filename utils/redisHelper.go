package utils

import (
	"fmt"
	"time"
)

const lossSummaryPrefix = "LossSummary"

// LossSummaryCacheKey keys one cached summary by bar and the optional date filter.
func LossSummaryCacheKey(barId string, from, to *time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", lossSummaryPrefix, barId, formatKeyDate(from), formatKeyDate(to))
}

// LossSummaryCachePattern matches every cached summary of a bar.
func LossSummaryCachePattern(barId string) string {
	return fmt.Sprintf("%s:%s:*", lossSummaryPrefix, barId)
}

func ShiftCloseLockKey(barId string) string {
	return "ShiftClose:" + barId
}

func formatKeyDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("20060102")
}

// SessionCacheKey marks a token as live until logout or expiry.
func SessionCacheKey(token string) string {
	return "Token:" + token
}
