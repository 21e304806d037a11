package dataset

import (
	"errors"
	"fmt"
)

// NoDataError 所有兜底层都试过后仍然一个交易对都没取到数据。
// 这是核心流程里唯一会上抛的致命错误；部分成功永远不算错误。
type NoDataError struct {
	Mode     Mode
	Attempts int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data was successfully fetched for any symbol (mode=%s, attempts=%d)", e.Mode, e.Attempts)
}

// IsNoData 判断错误链上是否为整体无数据。
func IsNoData(err error) bool {
	var nd *NoDataError
	return errors.As(err, &nd)
}
