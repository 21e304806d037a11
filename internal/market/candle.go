package market

import "time"

// Candle 单根 K 线，时间戳为 Unix 毫秒。
type Candle struct {
	OpenTime    int64   `json:"open_time"`
	CloseTime   int64   `json:"close_time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quote_volume"`
	Trades      int64   `json:"trades"`
}

// Time 返回开盘时间（UTC）。
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}
