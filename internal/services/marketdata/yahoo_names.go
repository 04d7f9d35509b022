package marketdata

import (
	"context"
	"net/url"
	"strings"
	"time"

	"SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
)

// negativeTTL bounds how long a failed lookup falls back to the raw symbol.
const negativeTTL = 10 * time.Minute

// NameResolver resolves display names from static configuration, then the Yahoo
// search API, and finally the symbol itself. Lookups never fail.
type NameResolver struct {
	static    map[string]string
	base      *HTTPServiceBase
	searchURL string
	cache     *gocache.Cache
	logger    *logger.Logger
}

// NewNameResolver builds a resolver. base may be nil to disable remote lookups.
func NewNameResolver(static map[string]string, base *HTTPServiceBase, searchURL string, ttl time.Duration, log *logger.Logger) *NameResolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	names := make(map[string]string, len(static))
	for k, v := range static {
		names[strings.ToUpper(k)] = v
	}
	return &NameResolver{
		static:    names,
		base:      base,
		searchURL: searchURL,
		cache:     gocache.New(ttl, ttl/2),
		logger:    log,
	}
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		LongName  string `json:"longname"`
		ShortName string `json:"shortname"`
	} `json:"quotes"`
}

// LookupDisplayName implements repository.NameLookup.
func (n *NameResolver) LookupDisplayName(ctx context.Context, symbol string) string {
	if name, ok := n.static[strings.ToUpper(symbol)]; ok && name != "" {
		return name
	}
	if v, ok := n.cache.Get(symbol); ok {
		return v.(string)
	}
	if n.base == nil || n.searchURL == "" {
		return symbol
	}

	name := n.search(ctx, symbol)
	if name == "" {
		n.cache.Set(symbol, symbol, negativeTTL)
		return symbol
	}
	n.cache.SetDefault(symbol, name)
	return name
}

func (n *NameResolver) search(ctx context.Context, symbol string) string {
	q := url.Values{}
	q.Set("q", symbol)
	q.Set("quotesCount", "5")
	q.Set("newsCount", "0")

	var resp searchResponse
	if err := n.base.GetJSON(ctx, n.searchURL, q, &resp); err != nil {
		n.logger.Warn("display name lookup failed", logger.String("symbol", symbol), logger.Error(err))
		return ""
	}
	for _, quote := range resp.Quotes {
		if !strings.EqualFold(quote.Symbol, symbol) {
			continue
		}
		if quote.LongName != "" {
			return quote.LongName
		}
		return quote.ShortName
	}
	return ""
}

var _ repository.NameLookup = (*NameResolver)(nil)
