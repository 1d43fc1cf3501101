package format

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"telecom-relay/internal/carrier"
	"telecom-relay/internal/util"
)

var packageAmountPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)(KB|MB|GB)`)

// Formatter renders carrier data as monitor-style text reports. The
// clock and poem picker are fields so tests get stable output.
type Formatter struct {
	now  func() time.Time
	pick func(n int) int
}

func NewFormatter() *Formatter {
	return &Formatter{
		now:  time.Now,
		pick: rand.Intn,
	}
}

type usageStats struct {
	balanceStatus     BalanceStatus
	voiceUsagePercent float64
	flowUsagePercent  float64
	dailyAvgFlow      float64
	remainingDays     int
	flowTrend         FlowTrend
}

func (f *Formatter) stats(summary *carrier.Summary) usageStats {
	dailyAvg := DailyAvgFlow(float64(summary.CommonUse), summary.CreateTime, f.now())

	s := usageStats{
		balanceStatus:    BalanceStatusFor(summary.Balance),
		flowUsagePercent: Percentage(float64(summary.CommonUse), float64(summary.CommonTotal)),
		dailyAvgFlow:     dailyAvg,
		remainingDays:    RemainingDays(f.now()),
		flowTrend:        FlowTrendFor(dailyAvg, float64(summary.CommonTotal)),
	}
	if summary.VoiceTotal > 0 {
		s.voiceUsagePercent = Percentage(float64(summary.VoiceUsage), float64(summary.VoiceTotal))
	}
	return s
}

// Basic renders the plain report without progress bars or analysis.
func (f *Formatter) Basic(bundle *carrier.Bundle) string {
	summary := bundle.Summary
	var b strings.Builder

	b.WriteString("【电信套餐用量监控】\n\n")
	b.WriteString(f.basicInfo(summary))

	details := f.basicPackageDetails(bundle.FluxPackage)
	if details != "" {
		b.WriteString("\n\n【流量包明细】\n\n")
		b.WriteString(details)
	}

	b.WriteString("\n\n查询时间：")
	b.WriteString(f.queryTime(summary.CreateTime))
	b.WriteString("\n\n")
	b.WriteString(f.poetry())

	return b.String()
}

// Enhanced renders the full report with progress bars, usage analysis,
// and shared-plan details when present.
func (f *Formatter) Enhanced(bundle *carrier.Bundle) string {
	summary := bundle.Summary
	stats := f.stats(summary)
	sep := separator("═", 40)

	var b strings.Builder
	b.WriteString("【✨ 电信套餐用量监控 ✨】\n")
	b.WriteString(sep)
	b.WriteString("\n\n")
	b.WriteString(f.enhancedInfo(summary, stats))

	details := f.enhancedPackageDetails(bundle.FluxPackage)
	if details != "" {
		b.WriteString("\n\n")
		b.WriteString(sep)
		b.WriteString("\n【📦 流量包明细】\n")
		b.WriteString(details)
	}

	share := f.shareUsage(bundle.ShareUsage)
	if share != "" {
		b.WriteString("\n\n")
		b.WriteString(sep)
		b.WriteString(share)
	}

	b.WriteString("\n\n")
	b.WriteString(sep)
	b.WriteString("\n⏰ 查询时间：")
	b.WriteString(f.queryTime(summary.CreateTime))
	b.WriteString("\n💡 温馨提示：")
	b.WriteString(UsageReminder(stats.balanceStatus, stats.flowTrend, stats.remainingDays))
	b.WriteString("\n\n📜 ")
	b.WriteString(f.poetry())
	b.WriteString("\n")
	b.WriteString(sep)

	return b.String()
}

// StatusSummary is the one-line overview used by status endpoints.
func (f *Formatter) StatusSummary(summary *carrier.Summary) string {
	stats := f.stats(summary)
	flowIcon := "🟢"
	if summary.FlowOver > 0 {
		flowIcon = "🔴"
	}
	return fmt.Sprintf("📱 %s | 💰 ¥%s | 🌐 %s/%sGB %s | 📊 %s%%",
		util.MaskPhoneNumber(summary.Phonenum),
		FormatBalance(summary.Balance),
		ConvertFlow(float64(summary.CommonUse), "GB", 2),
		ConvertFlow(float64(summary.CommonTotal), "GB", 2),
		flowIcon,
		percent(stats.flowUsagePercent))
}

// HTML wraps a rendered report for browser display.
func (f *Formatter) HTML(text string) string {
	return `<pre style="font-family: 'Monaco', 'Menlo', 'Ubuntu Mono', monospace; white-space: pre-wrap; line-height: 1.6; background: #f5f5f5; padding: 20px; border-radius: 8px; border-left: 4px solid #007acc; color: #333; font-size: 14px;">` + text + `</pre>`
}

func (f *Formatter) basicInfo(summary *carrier.Summary) string {
	voiceInfo := fmt.Sprintf("%d min", summary.VoiceUsage)
	if summary.VoiceTotal > 0 {
		voiceInfo = fmt.Sprintf("%d / %d min", summary.VoiceUsage, summary.VoiceTotal)
	}

	var commonFlow string
	if summary.FlowOver > 0 {
		commonFlow = fmt.Sprintf("-%s / %s GB 🔴",
			ConvertFlow(float64(summary.FlowOver), "GB", 2),
			ConvertFlow(float64(summary.CommonTotal), "GB", 2))
	} else {
		commonFlow = fmt.Sprintf("%s / %s GB 🟢",
			ConvertFlow(float64(summary.CommonUse), "GB", 2),
			ConvertFlow(float64(summary.CommonTotal), "GB", 2))
	}

	specialFlow := ""
	if summary.SpecialTotal > 0 {
		specialFlow = fmt.Sprintf("\n  - 专用：%s / %s GB",
			ConvertFlow(float64(summary.SpecialUse), "GB", 2),
			ConvertFlow(float64(summary.SpecialTotal), "GB", 2))
	}

	return fmt.Sprintf(`📱 手机：%s
💰 余额：%s
📞 通话：%s
🌐 总流量
  - 通用：%s%s`,
		util.MaskPhoneNumber(summary.Phonenum),
		FormatBalance(summary.Balance),
		voiceInfo,
		commonFlow,
		specialFlow)
}

func (f *Formatter) enhancedInfo(summary *carrier.Summary, stats usageStats) string {
	voiceInfo := fmt.Sprintf("%d min", summary.VoiceUsage)
	if summary.VoiceTotal > 0 {
		bar := SimpleProgressBar(float64(summary.VoiceUsage), float64(summary.VoiceTotal), 10)
		voiceInfo = fmt.Sprintf("%d / %d min [%s] %s%%",
			summary.VoiceUsage, summary.VoiceTotal, bar, percent(stats.voiceUsagePercent))
	}

	flowBar := SimpleProgressBar(float64(summary.CommonUse), float64(summary.CommonTotal), 15)
	var commonFlow string
	if summary.FlowOver > 0 {
		overPercent := Percentage(float64(summary.FlowOver), float64(summary.CommonTotal))
		commonFlow = fmt.Sprintf("-%s / %s GB 🔴\n    [%s] 超出%s%%",
			ConvertFlow(float64(summary.FlowOver), "GB", 2),
			ConvertFlow(float64(summary.CommonTotal), "GB", 2),
			flowBar, percent(overPercent))
	} else {
		commonFlow = fmt.Sprintf("%s / %s GB 🟢\n    [%s] %s%%",
			ConvertFlow(float64(summary.CommonUse), "GB", 2),
			ConvertFlow(float64(summary.CommonTotal), "GB", 2),
			flowBar, percent(stats.flowUsagePercent))
	}

	specialFlow := ""
	if summary.SpecialTotal > 0 {
		bar := SimpleProgressBar(float64(summary.SpecialUse), float64(summary.SpecialTotal), 10)
		p := Percentage(float64(summary.SpecialUse), float64(summary.SpecialTotal))
		specialFlow = fmt.Sprintf("\n  - 专用：%s / %s GB\n    [%s] %s%%",
			ConvertFlow(float64(summary.SpecialUse), "GB", 2),
			ConvertFlow(float64(summary.SpecialTotal), "GB", 2),
			bar, percent(p))
	}

	return fmt.Sprintf(`📱 手机：%s
%s 余额：¥%s (%s)
📞 通话：%s
🌐 总流量
  - 通用：%s%s

📊 使用分析
%s 日均流量：%s | 剩余天数：%d天
📈 使用趋势：%s`,
		util.MaskPhoneNumber(summary.Phonenum),
		balanceIcon(summary.Balance),
		FormatBalance(summary.Balance),
		balanceLabel(stats.balanceStatus),
		voiceInfo,
		commonFlow,
		specialFlow,
		trendIcon(stats.flowTrend),
		FormatFlow(stats.dailyAvgFlow),
		stats.remainingDays,
		trendLabel(stats.flowTrend))
}

func (f *Formatter) basicPackageDetails(pkg *carrier.FluxPackage) string {
	if pkg == nil || len(pkg.ProductOFFRatable.RatableResourcePackages) == 0 {
		return ""
	}

	var b strings.Builder
	for _, group := range pkg.ProductOFFRatable.RatableResourcePackages {
		fmt.Fprintf(&b, "\n%s%s\n", PackageIcon(group.Title), group.Title)
		for _, product := range group.ProductInfos {
			if product.InfiniteTitle != "" {
				fmt.Fprintf(&b, "🔹[%s]%s%s%s/无限\n",
					product.Title, product.InfiniteTitle, product.InfiniteValue, product.InfiniteUnit)
			} else if product.LeftTitle != "" && product.LeftHighlight != "" && product.RightCommon != "" {
				fmt.Fprintf(&b, "🔹[%s]%s%s/%s\n",
					product.Title, product.LeftTitle, product.LeftHighlight, product.RightCommon)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func (f *Formatter) enhancedPackageDetails(pkg *carrier.FluxPackage) string {
	if pkg == nil || len(pkg.ProductOFFRatable.RatableResourcePackages) == 0 {
		return ""
	}

	var b strings.Builder
	total := 0
	active := 0

	for _, group := range pkg.ProductOFFRatable.RatableResourcePackages {
		fmt.Fprintf(&b, "\n%s %s\n", PackageIcon(group.Title), group.Title)

		for _, product := range group.ProductInfos {
			total++

			if product.InfiniteTitle != "" {
				fmt.Fprintf(&b, "  🔹 [%s] %s%s%s/无限\n",
					product.Title, product.InfiniteTitle, product.InfiniteValue, product.InfiniteUnit)
				active++
				continue
			}

			if product.LeftTitle == "" || product.LeftHighlight == "" || product.RightCommon == "" {
				continue
			}

			fmt.Fprintf(&b, "  🔹 [%s] %s%s/%s\n",
				product.Title, product.LeftTitle, product.LeftHighlight, product.RightCommon)

			usageKB, okUsage := parsePackageAmount(product.LeftHighlight)
			totalKB, okTotal := parsePackageAmount(product.RightCommon)
			if okUsage && okTotal {
				bar := SimpleProgressBar(usageKB, totalKB, 8)
				fmt.Fprintf(&b, "      [%s] %s%% 已使用\n", bar, percent(Percentage(usageKB, totalKB)))
				if usageKB > 0 {
					active++
				}
			}
		}
	}

	fmt.Fprintf(&b, "\n📦 流量包统计：共%d个，活跃%d个\n", total, active)
	return strings.TrimSpace(b.String())
}

func (f *Formatter) shareUsage(share *carrier.ShareUsage) string {
	if share == nil || len(share.ShareTypeBeans) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n👥 共享套餐信息\n")

	for _, shareType := range share.ShareTypeBeans {
		fmt.Fprintf(&b, "\n🔗 %s\n", shareType.ShareTypeName)
		for _, info := range shareType.ShareUsageInfos {
			fmt.Fprintf(&b, "  📋 %s\n", info.ShareUsageName)
			for _, amount := range info.ShareUsageAmounts {
				bar := SimpleProgressBar(amount.UsageAmount, amount.TotalAmount, 6)
				fmt.Fprintf(&b, "    📱 %s: [%s] %s%%\n",
					util.MaskPhoneNumber(amount.PhoneNum), bar,
					percent(Percentage(amount.UsageAmount, amount.TotalAmount)))
			}
		}
	}
	return b.String()
}

// parsePackageAmount reads values like "35.6GB" or "500MB" out of the
// carrier's display strings and normalizes them to KB.
func parsePackageAmount(s string) (float64, bool) {
	match := packageAmountPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	switch match[2] {
	case "MB":
		value *= kbPerMB
	case "GB":
		value *= kbPerGB
	}
	return value, true
}

func (f *Formatter) queryTime(createTime string) string {
	if createTime != "" {
		return createTime
	}
	return BeijingTime(f.now())
}

func (f *Formatter) poetry() string {
	return poems[f.pick(len(poems))]
}

func percent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}
