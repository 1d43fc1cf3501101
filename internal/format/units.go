package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Flow values arrive from the carrier in KB.
const (
	kbPerMB = 1024
	kbPerGB = 1024 * 1024
)

// ConvertFlow renders a KB value in the given unit with the given
// number of decimals.
func ConvertFlow(sizeKB float64, unit string, decimals int) string {
	var result float64
	switch strings.ToUpper(unit) {
	case "KB":
		result = sizeKB
	case "MB":
		result = sizeKB / kbPerMB
	case "GB":
		result = sizeKB / kbPerGB
	default:
		result = sizeKB
	}
	return fmt.Sprintf("%.*f", decimals, result)
}

// FormatFlow picks the most readable unit for a KB value.
func FormatFlow(sizeKB float64) string {
	switch {
	case sizeKB < kbPerMB:
		return ConvertFlow(sizeKB, "KB", 0) + "KB"
	case sizeKB < kbPerGB:
		return ConvertFlow(sizeKB, "MB", 2) + "MB"
	default:
		return ConvertFlow(sizeKB, "GB", 2) + "GB"
	}
}

// FormatBalance renders a balance in cents as yuan.
func FormatBalance(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

type BalanceStatus string

const (
	BalanceSufficient BalanceStatus = "sufficient"
	BalanceLow        BalanceStatus = "low"
	BalanceCritical   BalanceStatus = "critical"
)

// BalanceStatusFor classifies a balance in cents: 50 yuan and up is
// sufficient, 10 to 50 is low, below 10 is critical.
func BalanceStatusFor(cents int64) BalanceStatus {
	switch {
	case cents >= 5000:
		return BalanceSufficient
	case cents >= 1000:
		return BalanceLow
	default:
		return BalanceCritical
	}
}

func balanceIcon(cents int64) string {
	switch BalanceStatusFor(cents) {
	case BalanceSufficient:
		return "💰"
	case BalanceLow:
		return "⚠️"
	default:
		return "🚨"
	}
}

func balanceLabel(status BalanceStatus) string {
	switch status {
	case BalanceSufficient:
		return "充足"
	case BalanceLow:
		return "偏低"
	default:
		return "不足"
	}
}

// PackageIcon picks an icon from keywords in the package group title.
func PackageIcon(title string) string {
	switch {
	case strings.Contains(title, "国内"):
		return "🇨🇳"
	case strings.Contains(title, "专用"):
		return "📺"
	case strings.Contains(title, "5G"):
		return "🚀"
	case strings.Contains(title, "定向"):
		return "🎯"
	default:
		return "🌎"
	}
}

// SimpleProgressBar draws a fixed-width bar of filled and empty cells.
// A non-positive total renders as fully filled.
func SimpleProgressBar(used, total float64, length int) string {
	if total <= 0 {
		return strings.Repeat("█", length)
	}
	ratio := math.Min(used/total, 1)
	filled := int(ratio * float64(length))
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}

// Percentage is used/total capped at 100; zero when total is zero.
func Percentage(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(used/total*100, 100)
}

type FlowTrend string

const (
	TrendNormal   FlowTrend = "normal"
	TrendHigh     FlowTrend = "high"
	TrendVeryHigh FlowTrend = "very_high"
)

// FlowTrendFor projects the daily average over a 30-day month and
// compares it against the plan total.
func FlowTrendFor(dailyAvg, totalFlow float64) FlowTrend {
	if totalFlow <= 0 {
		return TrendNormal
	}
	ratio := dailyAvg * 30 / totalFlow
	switch {
	case ratio > 1.5:
		return TrendVeryHigh
	case ratio > 1.2:
		return TrendHigh
	default:
		return TrendNormal
	}
}

func trendIcon(trend FlowTrend) string {
	switch trend {
	case TrendHigh:
		return "📈"
	case TrendVeryHigh:
		return "🔥"
	default:
		return "📊"
	}
}

func trendLabel(trend FlowTrend) string {
	switch trend {
	case TrendHigh:
		return "偏高"
	case TrendVeryHigh:
		return "过高"
	default:
		return "正常"
	}
}

// DailyAvgFlow divides the used flow by the days elapsed from the
// start of the data's month to its create time, at least one day.
// An unparseable create time falls back to now.
func DailyAvgFlow(usedKB float64, createTime string, now time.Time) float64 {
	dataTime, err := time.ParseInLocation("2006-01-02 15:04:05", createTime, now.Location())
	if err != nil {
		dataTime = now
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	days := math.Ceil(dataTime.Sub(monthStart).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return usedKB / days
}

// RemainingDays counts days until the first of next month, rounded up.
func RemainingDays(now time.Time) int {
	nextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	return int(math.Ceil(nextMonth.Sub(now).Hours() / 24))
}

// UsageReminder collects warnings for the current balance, trend, and
// billing cycle position.
func UsageReminder(status BalanceStatus, trend FlowTrend, remainingDays int) string {
	var reminders []string

	switch status {
	case BalanceCritical:
		reminders = append(reminders, "⚠️ 余额不足，建议及时充值")
	case BalanceLow:
		reminders = append(reminders, "💡 余额偏低，请注意充值")
	}

	switch trend {
	case TrendVeryHigh:
		reminders = append(reminders, "🔥 流量使用过快，请注意控制")
	case TrendHigh:
		reminders = append(reminders, "📈 流量使用较快，请适度控制")
	}

	if remainingDays <= 3 {
		reminders = append(reminders, "📅 套餐即将到期，请关注续费")
	}

	if len(reminders) == 0 {
		return "✅ 一切正常，继续享受服务"
	}
	return strings.Join(reminders, " | ")
}

var poems = []string{
	"前不见古人,后不见来者.念天地之悠悠,独怆然而涕下.    ----登幽州台歌",
	"海内存知己,天涯若比邻.    ----送杜少府之任蜀州",
	"山重水复疑无路,柳暗花明又一村.    ----游山西村",
	"长风破浪会有时,直挂云帆济沧海.    ----行路难",
	"会当凌绝顶,一览众山小.    ----望岳",
	"落红不是无情物,化作春泥更护花.    ----己亥杂诗",
	"千里之行,始于足下.    ----道德经",
	"学而时习之,不亦说乎.    ----论语",
	"路漫漫其修远兮,吾将上下而求索.    ----离骚",
	"天行健,君子以自强不息.    ----周易",
}

func separator(char string, length int) string {
	return strings.Repeat(char, length)
}

// BeijingTime renders t in UTC+8 regardless of the host zone.
func BeijingTime(t time.Time) string {
	return t.In(time.FixedZone("CST", 8*3600)).Format("2006-01-02 15:04:05")
}
