// Package typhoon keeps the current tropical cyclone warning signal, refreshed from the Hong Kong
// Observatory warning summary at most once per TTL.
package typhoon

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 5 * time.Minute

const warningSummaryURL = "https://data.weather.gov.hk/weatherAPI/opendata/weather.php?dataType=warnsum&lang=%s"

var signalCodeRegex = regexp.MustCompile("TC([0-9]+)(.*)")

type warningSummary struct {
	WTCSGNL *struct {
		Name string `json:"name"`
		Code string `json:"code"`
		Type string `json:"type"`
	} `json:"WTCSGNL"`
}

type Cache struct {
	Fetcher  httpclient.Fetcher
	TTL      time.Duration
	Now      func() time.Time
	Disabled bool

	// URL is the feed address with a %s for the feed language
	URL string

	shared *cache.Cache[string]

	slotsMutex sync.Mutex
	slots      map[transit.Language]transit.TyphoonInfo

	inflight singleflight.Group
}

func New(fetcher httpclient.Fetcher, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}

	return &Cache{
		Fetcher: fetcher,
		TTL:     ttl,
		Now:     now,
		URL:     warningSummaryURL,
		slots:   map[transit.Language]transit.TyphoonInfo{},
	}
}

// ShareWith stores fetched signals in redis so that several processes refresh the feed once per TTL between them
func (c *Cache) ShareWith(client *redis.Client) {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(c.TTL))
	c.shared = cache.New[string](redisStore)
}

// Cached returns the last known value without fetching
func (c *Cache) Cached(language transit.Language) transit.TyphoonInfo {
	c.slotsMutex.Lock()
	defer c.slotsMutex.Unlock()

	if info, exists := c.slots[language]; exists {
		return info
	}
	return transit.TyphoonNoData
}

// Get returns the current signal, fetching it when the cached value is older than the TTL.
// A failed fetch is reported as no signal in force.
func (c *Cache) Get(ctx context.Context, language transit.Language) transit.TyphoonInfo {
	now := c.Now()
	if c.Disabled {
		return transit.NoTyphoonInfo(now.UnixMilli())
	}

	if info := c.Cached(language); c.fresh(info, now) {
		return info
	}

	if info, ok := c.getShared(ctx, language, now); ok {
		c.store(language, info)
		return info
	}

	result, _, _ := c.inflight.Do(string(language), func() (any, error) {
		info := c.fetch(context.WithoutCancel(ctx), language)
		c.store(language, info)
		c.setShared(ctx, language, info)
		return info, nil
	})

	return result.(transit.TyphoonInfo)
}

func (c *Cache) fresh(info transit.TyphoonInfo, now time.Time) bool {
	return info != transit.TyphoonNoData && now.UnixMilli()-info.LastUpdated < c.TTL.Milliseconds()
}

func (c *Cache) store(language transit.Language, info transit.TyphoonInfo) {
	c.slotsMutex.Lock()
	defer c.slotsMutex.Unlock()

	c.slots[language] = info
}

func sharedKey(language transit.Language) string {
	return fmt.Sprintf("typhoon:%s", language)
}

func (c *Cache) getShared(ctx context.Context, language transit.Language, now time.Time) (transit.TyphoonInfo, bool) {
	if c.shared == nil {
		return transit.TyphoonNoData, false
	}

	value, err := c.shared.Get(ctx, sharedKey(language))
	if err != nil {
		return transit.TyphoonNoData, false
	}

	var info transit.TyphoonInfo
	if err := json.Unmarshal([]byte(value), &info); err != nil {
		log.Debug().Err(err).Msg("Discarding unreadable shared typhoon info")
		return transit.TyphoonNoData, false
	}
	if !c.fresh(info, now) {
		return transit.TyphoonNoData, false
	}

	return info, true
}

func (c *Cache) setShared(ctx context.Context, language transit.Language, info transit.TyphoonInfo) {
	if c.shared == nil {
		return
	}

	infoJSON, _ := json.Marshal(info)
	if err := c.shared.Set(ctx, sharedKey(language), string(infoJSON)); err != nil {
		log.Warn().Err(err).Msg("Failed to share typhoon info")
	}
}

func (c *Cache) fetch(ctx context.Context, language transit.Language) transit.TyphoonInfo {
	feedLanguage := "tc"
	if language == transit.LanguageEnglish {
		feedLanguage = "en"
	}

	summary, err := httpclient.GetJSON[warningSummary](ctx, c.Fetcher, fmt.Sprintf(c.URL, feedLanguage))
	if err != nil {
		log.Debug().Err(err).Msg("Typhoon warning summary unavailable")
		return transit.NoTyphoonInfo(c.Now().UnixMilli())
	}

	return summary.info(language, c.Now())
}

func (s warningSummary) info(language transit.Language, now time.Time) transit.TyphoonInfo {
	if s.WTCSGNL == nil {
		return transit.NoTyphoonInfo(now.UnixMilli())
	}

	groups := signalCodeRegex.FindStringSubmatch(s.WTCSGNL.Code)
	if groups == nil {
		return transit.NoTyphoonInfo(now.UnixMilli())
	}
	signal, err := strconv.Atoi(groups[1])
	if err != nil {
		return transit.NoTyphoonInfo(now.UnixMilli())
	}

	title := s.WTCSGNL.Type + " 現正生效"
	if language == transit.LanguageEnglish {
		title = s.WTCSGNL.Type + " is in force"
	}

	return transit.TyphoonInfo{
		IsAboveTyphoonSignalEight: signal >= 8,
		IsAboveTyphoonSignalNine:  signal >= 9,
		TyphoonWarningTitle:       title,
		CurrentTyphoonSignalID:    SignalID(signal, groups[2]),
		LastUpdated:               now.UnixMilli(),
	}
}

// SignalID names the signal icon, e.g. tc3 or tc08ne
func SignalID(signal int, suffix string) string {
	if signal < 8 {
		return fmt.Sprintf("tc%d%s", signal, strings.ToLower(suffix))
	}
	return fmt.Sprintf("tc%02d%s", signal, strings.ToLower(suffix))
}
