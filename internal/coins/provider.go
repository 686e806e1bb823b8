package coins

import (
	"context"
	"errors"
	"fmt"

	"spotanalitics/internal/market"
	"spotanalitics/internal/pkg/symbol"
)

// SymbolProvider 每个 pass 的扫描币种来源，返回 BASE/QUOTE 格式。
type SymbolProvider interface {
	List(ctx context.Context) ([]string, error)
	Name() string
}

// StaticProvider 使用配置中的固定列表（market.symbols），覆盖排名。
type StaticProvider struct{ symbols []string }

func NewStaticProvider(symbols []string) *StaticProvider {
	return &StaticProvider{symbols: symbols}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) List(_ context.Context) ([]string, error) {
	out := symbol.NormalizeList(p.symbols)
	if len(out) == 0 {
		return nil, errors.New("static symbol list is empty after normalization")
	}
	return out, nil
}

// RankedProvider 按 24h 成交额取前 TopN 个交易对；TopN 为 0 表示全部。
type RankedProvider struct {
	ranker market.Ranker
	quote  string
	topN   int
}

func NewRankedProvider(ranker market.Ranker, quote string, topN int) *RankedProvider {
	if quote == "" {
		quote = symbol.DefaultQuote
	}
	return &RankedProvider{ranker: ranker, quote: quote, topN: topN}
}

func (p *RankedProvider) Name() string { return "ranked" }

func (p *RankedProvider) List(ctx context.Context) ([]string, error) {
	ranked, err := p.ranker.RankedSymbols(ctx, p.quote)
	if err != nil {
		return nil, fmt.Errorf("ranked symbols: %w", err)
	}
	out := symbol.NormalizeList(ranked)
	if p.topN > 0 && len(out) > p.topN {
		out = out[:p.topN]
	}
	return out, nil
}

// New 根据配置选择实现：静态列表非空时优先。
func New(static []string, ranker market.Ranker, quote string, topN int) SymbolProvider {
	if len(static) > 0 {
		return NewStaticProvider(static)
	}
	return NewRankedProvider(ranker, quote, topN)
}
