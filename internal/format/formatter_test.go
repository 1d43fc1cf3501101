package format

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecom-relay/internal/carrier"
)

func newTestFormatter() *Formatter {
	f := NewFormatter()
	f.now = func() time.Time {
		return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	}
	f.pick = func(n int) int { return 0 }
	return f
}

func testBundle() *carrier.Bundle {
	pkg := &carrier.FluxPackage{}
	pkg.ProductOFFRatable.RatableResourcePackages = []carrier.ResourcePackageGroup{
		{
			Title: "国内通用流量",
			ProductInfos: []carrier.ProductInfo{
				{
					Title:         "畅享套餐",
					LeftTitle:     "已用",
					LeftHighlight: "10.00GB",
					RightCommon:   "20.00GB",
				},
			},
		},
		{
			Title: "5G专属流量",
			ProductInfos: []carrier.ProductInfo{
				{
					Title:         "5G加速包",
					InfiniteTitle: "已用",
					InfiniteValue: "5.2",
					InfiniteUnit:  "GB",
				},
			},
		},
	}

	return &carrier.Bundle{
		Summary: &carrier.Summary{
			Phonenum:    "13800138000",
			Balance:     12345,
			VoiceUsage:  100,
			VoiceTotal:  500,
			CommonUse:   10 * 1024 * 1024,
			CommonTotal: 20 * 1024 * 1024,
			CreateTime:  "2026-08-11 00:00:00",
		},
		FluxPackage: pkg,
	}
}

func TestBasicReport(t *testing.T) {
	t.Parallel()

	text := newTestFormatter().Basic(testBundle())

	assert.Contains(t, text, "【电信套餐用量监控】")
	assert.Contains(t, text, "📱 手机：138****8000")
	assert.NotContains(t, text, "13800138000")
	assert.Contains(t, text, "💰 余额：123.45")
	assert.Contains(t, text, "📞 通话：100 / 500 min")
	assert.Contains(t, text, "10.00 / 20.00 GB 🟢")
	assert.Contains(t, text, "【流量包明细】")
	assert.Contains(t, text, "🔹[畅享套餐]已用10.00GB/20.00GB")
	assert.Contains(t, text, "🔹[5G加速包]已用5.2GB/无限")
	assert.Contains(t, text, "查询时间：2026-08-11 00:00:00")
	assert.Contains(t, text, "登幽州台歌")
}

func TestEnhancedReport(t *testing.T) {
	t.Parallel()

	text := newTestFormatter().Enhanced(testBundle())

	assert.Contains(t, text, "【✨ 电信套餐用量监控 ✨】")
	assert.Contains(t, text, strings.Repeat("═", 40))
	assert.Contains(t, text, "💰 余额：¥123.45 (充足)")
	assert.Contains(t, text, "📊 使用分析")
	assert.Contains(t, text, "剩余天数：17天")
	assert.Contains(t, text, "[█")
	assert.Contains(t, text, "50.0%")
	assert.Contains(t, text, "📦 流量包统计：共2个，活跃2个")
	assert.Contains(t, text, "💡 温馨提示：")
	assert.Contains(t, text, "📜 ")
}

func TestEnhancedReportOverflow(t *testing.T) {
	t.Parallel()

	bundle := testBundle()
	bundle.Summary.FlowOver = 2 * 1024 * 1024

	text := newTestFormatter().Enhanced(bundle)
	assert.Contains(t, text, "-2.00 / 20.00 GB 🔴")
	assert.Contains(t, text, "超出10.0%")
}

func TestEnhancedReportShareUsage(t *testing.T) {
	t.Parallel()

	bundle := testBundle()
	bundle.ShareUsage = &carrier.ShareUsage{
		ShareTypeBeans: []carrier.ShareTypeBean{
			{
				ShareTypeName: "共享流量",
				ShareUsageInfos: []carrier.ShareUsageInfo{
					{
						ShareUsageName: "家庭共享",
						ShareUsageAmounts: []carrier.ShareUsageAmount{
							{PhoneNum: "13900139000", UsageAmount: 30, TotalAmount: 100},
						},
					},
				},
			},
		},
	}

	text := newTestFormatter().Enhanced(bundle)
	assert.Contains(t, text, "👥 共享套餐信息")
	assert.Contains(t, text, "🔗 共享流量")
	assert.Contains(t, text, "📋 家庭共享")
	assert.Contains(t, text, "139****9000")
	assert.Contains(t, text, "30.0%")
}

func TestReportsOmitMissingPackageDetails(t *testing.T) {
	t.Parallel()

	bundle := testBundle()
	bundle.FluxPackage = nil

	basic := newTestFormatter().Basic(bundle)
	assert.NotContains(t, basic, "【流量包明细】")

	enhanced := newTestFormatter().Enhanced(bundle)
	assert.NotContains(t, enhanced, "【📦 流量包明细】")
}

func TestStatusSummary(t *testing.T) {
	t.Parallel()

	line := newTestFormatter().StatusSummary(testBundle().Summary)

	assert.Contains(t, line, "📱 138****8000")
	assert.Contains(t, line, "💰 ¥123.45")
	assert.Contains(t, line, "🌐 10.00/20.00GB 🟢")
	assert.Contains(t, line, "📊 50.0%")
	assert.False(t, strings.Contains(line, "\n"))
}

func TestQueryTimeFallsBackToBeijingTime(t *testing.T) {
	t.Parallel()

	bundle := testBundle()
	bundle.Summary.CreateTime = ""

	text := newTestFormatter().Basic(bundle)
	assert.Contains(t, text, "查询时间：2026-08-15 20:00:00")
}

func TestParsePackageAmount(t *testing.T) {
	t.Parallel()

	kb, ok := parsePackageAmount("35.5GB")
	require.True(t, ok)
	assert.InDelta(t, 35.5*1024*1024, kb, 0.001)

	kb, ok = parsePackageAmount("已用500MB")
	require.True(t, ok)
	assert.InDelta(t, 500*1024, kb, 0.001)

	kb, ok = parsePackageAmount("128KB")
	require.True(t, ok)
	assert.InDelta(t, 128, kb, 0.001)

	_, ok = parsePackageAmount("无限")
	assert.False(t, ok)
}

func TestHTMLWrapsReport(t *testing.T) {
	t.Parallel()

	html := newTestFormatter().HTML("report body")
	assert.True(t, strings.HasPrefix(html, "<pre"))
	assert.Contains(t, html, "report body")
	assert.True(t, strings.HasSuffix(html, "</pre>"))
}
