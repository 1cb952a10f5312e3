package exchange

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// candleFetcher 抽象单页K线拉取，便于在测试中替换真实交易所。
type candleFetcher interface {
	Symbol() string
	FetchCandles(ctx context.Context, timeframe string, since time.Time, limit int64) ([]Candle, error)
}

// HistoryService 按时间窗口分页拉取历史K线。
type HistoryService struct {
	client    candleFetcher
	pageLimit int64
	logger    *zap.Logger
}

// NewHistoryService 创建历史行情服务。
func NewHistoryService(client candleFetcher, pageLimit int, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageLimit <= 0 {
		pageLimit = 1000
	}
	return &HistoryService{
		client:    client,
		pageLimit: int64(pageLimit),
		logger:    logger,
	}
}

// FetchRange 拉取 [Since, Until] 内的全部K线，按时间升序返回。
// 游标每页前移到末根K线之后1毫秒，重复K线被跳过。
func (s *HistoryService) FetchRange(ctx context.Context, req RangeRequest) ([]Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		candles []Candle
		cursor  = req.Since
		pages   int
	)

	for {
		page, err := s.client.FetchCandles(ctx, req.Timeframe, cursor, s.pageLimit)
		if err != nil {
			return nil, fmt.Errorf("exchange: 拉取K线分页失败: %w", err)
		}
		if len(page) == 0 {
			break
		}
		pages++

		reachedEnd := false
		for _, candle := range page {
			if candle.Timestamp.Before(cursor) {
				continue
			}
			if candle.Timestamp.After(req.Until) {
				reachedEnd = true
				break
			}
			candles = append(candles, candle)
		}

		last := page[len(page)-1].Timestamp
		s.logger.Debug("已拉取K线分页",
			zap.String("symbol", s.client.Symbol()),
			zap.String("timeframe", req.Timeframe),
			zap.Int("page", pages),
			zap.Int("count", len(page)),
			zap.Time("last", last),
		)

		if reachedEnd || int64(len(page)) < s.pageLimit {
			break
		}
		next := last.Add(time.Millisecond)
		if !next.After(cursor) {
			break
		}
		cursor = next
	}

	s.logger.Info("历史K线拉取完成",
		zap.String("symbol", s.client.Symbol()),
		zap.String("timeframe", req.Timeframe),
		zap.Time("since", req.Since),
		zap.Time("until", req.Until),
		zap.Int("candles", len(candles)),
	)
	return candles, nil
}
