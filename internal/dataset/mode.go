package dataset

import (
	"fmt"
	"strings"
)

// Mode 控制数据来源：auto 先归档后实时，archive/live 只用单一来源。
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeArchive Mode = "archive"
	ModeLive    Mode = "live"
)

// ParseMode 解析来源模式，兼容旧称呼（vision/api）。
func ParseMode(input string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "auto":
		return ModeAuto, nil
	case "archive", "vision":
		return ModeArchive, nil
	case "live", "api":
		return ModeLive, nil
	default:
		return "", fmt.Errorf("不支持的数据来源模式: %s", input)
	}
}
