package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/analysis/correlation"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/dataset"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/symbol"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"

	chartWidthPx   = 1200
	heatmapHeight  = 640
	lineHeightPx   = 480
	rollingHeight  = 360
	timeAxisFormat = "01-02 15:04"
)

// 相关系数从 -1 到 +1 的渐变色带
var heatmapColors = []string{"#313695", "#74add1", "#e0f3f8", "#fee090", "#f46d43", "#a50026"}

// Input 汇总一次运行需要渲染的全部素材。RollingPair 可为空序列。
type Input struct {
	Title       string
	Dataset     market.Dataset
	Matrix      correlation.Matrix
	Report      dataset.Report
	RollingPair market.Series
}

// BuildHTML 产出单页报告：相关性热力图 + 归一化收盘价折线，
// 配置了滚动对时再加一张滚动相关曲线。
func BuildHTML(input Input) ([]byte, error) {
	if input.Matrix.Size() == 0 {
		return nil, fmt.Errorf("没有可渲染的相关矩阵")
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = pageTitle(input)

	page.AddCharts(buildHeatmap(input), buildNormalizedLines(input.Dataset))
	if !input.RollingPair.Empty() {
		page.AddCharts(buildRollingLine(input.RollingPair))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHTML 把报告写入 dir/<name>.html 并返回完整路径。
func WriteHTML(dir, name string, html []byte) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("报告输出目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".html")
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func pageTitle(input Input) string {
	if strings.TrimSpace(input.Title) != "" {
		return input.Title
	}
	return "相关性分析报告"
}

func buildHeatmap(input Input) *charts.HeatMap {
	m := input.Matrix
	bases := symbol.Bases(m.Symbols)

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", heatmapHeight),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         "收盘价相关性矩阵",
			Subtitle:      subtitleOf(input.Report),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			Data:      bases,
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      bases,
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			Orient:     "horizontal",
			Left:       "center",
			InRange:    &opts.VisualMapInRange{Color: heatmapColors},
		}),
	)

	data := make([]opts.HeatMapData, 0, m.Size()*m.Size())
	for i := 0; i < m.Size(); i++ {
		for j := 0; j < m.Size(); j++ {
			data = append(data, opts.HeatMapData{
				Value: [3]interface{}{i, j, round2(m.At(j, i))},
			})
		}
	}
	hm.AddSeries("correlation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Color: colorTextPrimary}),
	)
	return hm
}

// buildNormalizedLines 把每列价格归一到起点 100，便于同图比较走势。
func buildNormalizedLines(ds market.Dataset) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", lineHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "归一化收盘价（起点=100）",
			Left:       "left",
			Top:        "10",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 16},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "40", TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)

	line.SetXAxis(timeAxis(ds.Times))
	for _, sym := range ds.Symbols {
		col := ds.Column(sym)
		if len(col) == 0 || col[0] == 0 {
			continue
		}
		data := make([]opts.LineData, 0, len(col))
		for _, v := range col {
			data = append(data, opts.LineData{Value: round2(v / col[0] * 100)})
		}
		line.AddSeries(symbol.BaseOf(sym), data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)
	}
	return line
}

func buildRollingLine(series market.Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", rollingHeight),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      fmt.Sprintf("滚动相关: %s", series.Symbol),
			Left:       "left",
			Top:        "10",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 16},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Min:       -1,
			Max:       1,
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)

	times := make([]time.Time, 0, series.Len())
	data := make([]opts.LineData, 0, series.Len())
	for _, p := range series.Points {
		times = append(times, p.Time)
		data = append(data, opts.LineData{Value: round2(p.Close)})
	}
	line.SetXAxis(timeAxis(times))
	line.AddSeries(series.Symbol, data)
	return line
}

func subtitleOf(rep dataset.Report) string {
	span := ""
	if !rep.Start.IsZero() && !rep.End.IsZero() {
		span = fmt.Sprintf(" | %s ~ %s",
			rep.Start.Format("2006-01-02 15:04"), rep.End.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("来源=%s 周期=%s 形状=%d×%d%s",
		rep.Mode, rep.Timeframe, rep.Rows, rep.Columns, span)
}

func timeAxis(times []time.Time) []string {
	x := make([]string, len(times))
	for i, ts := range times {
		x[i] = ts.UTC().Format(timeAxisFormat)
	}
	return x
}

func round2(v float64) float64 {
	return float64(int(v*100+copysignHalf(v))) / 100
}

func copysignHalf(v float64) float64 {
	if v < 0 {
		return -0.5
	}
	return 0.5
}
