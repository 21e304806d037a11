package binance

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/market"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/convert"
)

// ArchiveSource 下载 Binance Vision 的按日归档 K 线 zip。
// 归档固定为 12 列 CSV，时间戳为 Unix 毫秒。
type ArchiveSource struct {
	cfg    Config
	client *http.Client
}

func NewArchiveSource(cfg Config) (*ArchiveSource, error) {
	final := cfg.withDefaults()
	httpClient, err := final.newHTTPClient(final.DataTimeout)
	if err != nil {
		return nil, err
	}
	return &ArchiveSource{cfg: final, client: httpClient}, nil
}

func (a *ArchiveSource) Name() string { return "vision" }

// DayURL 拼出某交易对某周期某自然日的归档地址。
func (a *ArchiveSource) DayURL(symbolName string, tf market.Timeframe, day time.Time) string {
	date := day.UTC().Format("2006-01-02")
	return fmt.Sprintf("%s/data/spot/daily/klines/%s/%s/%s-%s-%s.zip",
		a.cfg.VisionBaseURL, symbolName, tf.SourceInterval, symbolName, tf.SourceInterval, date)
}

// FetchDay 下载并解析一个自然日的归档。单次请求；非 200（包括尚未发布的
// 日期）与解析失败都作为普通错误返回，由调用方吸收。
func (a *ArchiveSource) FetchDay(ctx context.Context, symbolName string, tf market.Timeframe, day time.Time) ([]market.Candle, error) {
	symbolName = strings.ToUpper(strings.TrimSpace(symbolName))
	if symbolName == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	if tf.Key == "" {
		return nil, fmt.Errorf("timeframe 不能为空")
	}

	url := a.DayURL(symbolName, tf, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("归档返回状态码 %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseArchiveZip(payload)
}

func parseArchiveZip(payload []byte) ([]market.Candle, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("解压归档失败: %w", err)
	}
	var csvFile *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			csvFile = f
			break
		}
	}
	if csvFile == nil {
		return nil, fmt.Errorf("归档中没有 CSV 文件")
	}
	rc, err := csvFile.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	var out []market.Candle
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取 CSV 失败: %w", err)
		}
		if len(row) < 12 {
			continue
		}
		openTime, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
		if err != nil {
			// 个别归档带表头行，跳过
			continue
		}
		out = append(out, market.Candle{
			OpenTime:    openTime,
			Open:        convert.ToFloat64(row[1]),
			High:        convert.ToFloat64(row[2]),
			Low:         convert.ToFloat64(row[3]),
			Close:       convert.ToFloat64(row[4]),
			Volume:      convert.ToFloat64(row[5]),
			CloseTime:   convert.ToInt64(row[6]),
			QuoteVolume: convert.ToFloat64(row[7]),
			Trades:      convert.ToInt64(row[8]),
		})
	}
	return out, nil
}
