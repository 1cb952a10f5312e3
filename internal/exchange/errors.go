package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

// ErrMaintenance 表示交易所处于维护状态，重试没有意义。
var ErrMaintenance = errors.New("exchange on maintenance")

// classifyError 归一化交易所错误并判断是否可重试。
// 网络抖动、限流与坏响应可重试，维护状态转换为 ErrMaintenance 直接上抛。
func classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		if ccxtErr.Type == ccxt.OnMaintenanceErrType {
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		}

		switch ccxtErr.Type {
		case ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.NetworkErrorErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.NullResponseErrType,
			ccxt.BadResponseErrType:
			return err, true
		}
		return err, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}
