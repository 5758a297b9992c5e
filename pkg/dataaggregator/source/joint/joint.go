// Package joint merges the KMB and Citybus predictions of routes both operators run together.
package joint

import (
	"context"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/ctb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/kmb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/agnivade/levenshtein"
	"github.com/bluele/gcache"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// NearbyStopRadius is how far from the KMB stop a Citybus stop may be, in kilometres
const NearbyStopRadius = 0.4

type Source struct {
	KMB kmb.Source
	CTB ctb.Source

	nearbyStops gcache.Cache
}

type nearbyStopsKey struct {
	RouteNumber string
	StopID      string
	Index       int
}

func New(fetcher httpclient.Fetcher) *Source {
	return &Source{
		KMB:         kmb.New(fetcher),
		CTB:         ctb.New(fetcher),
		nearbyStops: gcache.New(4096).LRU().Build(),
	}
}

func (s *Source) GetName() string {
	return "KMB & Citybus Joint"
}

func (s *Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorKMB, transit.OperatorCTB}
}

type arrival struct {
	co             transit.Operator
	minutes        float64
	minutesRounded int
	message        transit.FormattedText
}

type kmbLeg struct {
	arrivals          []arrival
	firstScheduledBus int
	specialMessage    transit.FormattedText
}

func (s *Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	if !q.Route.KmbCtbJoint {
		return nil, source.UnsupportedSourceError
	}

	kmbStopID := q.StopID
	if !transit.OperatorKMB.MatchesStopID(kmbStopID) {
		kmbStops := q.Route.Stops[transit.OperatorKMB]
		if q.StopIndex < 1 || q.StopIndex > len(kmbStops) {
			return nil, source.UnsupportedSourceError
		}
		kmbStopID = kmbStops[q.StopIndex-1]
	}

	var kmbResult kmbLeg
	var ctbResult []arrival

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		kmbResult, err = s.kmbArrivals(ctx, q, kmbStopID)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		ctbResult, err = s.ctbArrivals(ctx, q, kmbStopID)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	builder := source.NewBuilder(q, q.Typhoon.IsAboveTyphoonSignalEight)

	merged := append(kmbResult.arrivals, ctbResult...)
	if len(merged) == 0 {
		switch {
		case kmbResult.specialMessage.IsEmpty():
		case q.Typhoon.IsAboveTyphoonSignalEight && kmb.IsSuspended(kmbResult.specialMessage):
			builder.SetText(source.NoScheduledDeparture(kmbResult.specialMessage, q.Language, q.Typhoon))
		default:
			builder.SetText(kmbResult.specialMessage)
		}
		return builder.Build(), nil
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].minutes < merged[j].minutes
	})
	builder.SetNextCo(merged[0].co)

	scheduledText := source.Text(q.Language, "Scheduled Bus", "預定班次")
	subsidiary := q.Engine.Index.KMBSubsidiary(q.Route.RouteNumber)

	for _, entry := range merged {
		message := entry.message
		if entry.minutesRounded > kmbResult.firstScheduledBus && !strings.Contains(message.String(), scheduledText) {
			message = message.Append(transit.TextSegment{Text: " (" + scheduledText + ")", Small: true})
		}
		message = message.Append(transit.TextSegment{Text: " - " + entry.co.DisplayName(q.Route.RouteNumber, subsidiary).Get(q.Language), Small: true})

		builder.Add(transit.NewETALine(message, source.ShortText(q.Language, entry.minutesRounded, 0), entry.minutes, entry.minutesRounded))
	}

	return builder.Build(), nil
}

func (s *Source) kmbArrivals(ctx context.Context, q query.ETA, stopID string) (kmbLeg, error) {
	leg := kmbLeg{firstScheduledBus: math.MaxInt}

	arrivals, err := s.KMB.Arrivals(ctx, stopID)
	if err != nil {
		return leg, err
	}

	matchingSeq := kmb.MatchingSequence(arrivals, q.Route, q.StopIndex)
	usedEtaSeq := map[int]bool{}
	scheduledText := source.Text(q.Language, "Scheduled Bus", "預定班次")

	for _, a := range arrivals {
		if !a.Matches(q.Route) || a.Seq != matchingSeq || usedEtaSeq[a.EtaSeq] {
			continue
		}
		usedEtaSeq[a.EtaSeq] = true

		remark := a.Remark(q.Language)

		eta, ok := a.Time()
		if !ok {
			remark = strings.TrimSpace(strings.NewReplacer("(Final Bus)", "", "(尾班車)", "").Replace(remark))
			if remark != "" && leg.specialMessage.IsEmpty() {
				leg.specialMessage = transit.PlainText(remark)
			}
			continue
		}

		minutes := source.Minutes(eta, q.Now)
		minutesRounded := source.Round(minutes)
		if strings.Contains(remark, scheduledText) {
			leg.firstScheduledBus = min(leg.firstScheduledBus, minutesRounded)
		}

		message := source.AppendRemark(source.MinutesText(q.Language, minutesRounded), remark)
		if message.IsEmpty() {
			continue
		}
		leg.arrivals = append(leg.arrivals, arrival{co: transit.OperatorKMB, minutes: minutes, minutesRounded: minutesRounded, message: message})
	}

	return leg, nil
}

// ctbStops are the Citybus stops paired with the KMB stop, from the stop map or else by proximity
func (s *Source) ctbStops(q query.ETA, kmbStopID string) []string {
	var stopIDs []string
	for _, entry := range q.Engine.Index.StopMap(kmbStopID) {
		if entry.Operator() == transit.OperatorCTB {
			stopIDs = append(stopIDs, entry.StopID())
		}
	}
	if len(stopIDs) > 0 {
		return stopIDs
	}

	key := nearbyStopsKey{RouteNumber: q.Route.RouteNumber, StopID: kmbStopID, Index: q.StopIndex}
	if cached, err := s.nearbyStops.Get(key); err == nil {
		return cached.([]string)
	}

	origin, exists := q.Engine.Index.Stop(kmbStopID)
	if !exists {
		return nil
	}
	for _, stopID := range q.Engine.Index.StopIDs() {
		if !transit.OperatorCTB.MatchesStopID(stopID) {
			continue
		}
		stop, _ := q.Engine.Index.Stop(stopID)
		if origin.Location.Distance(stop.Location) <= NearbyStopRadius {
			stopIDs = append(stopIDs, stopID)
		}
	}
	s.nearbyStops.Set(key, stopIDs)

	return stopIDs
}

type destinationBucket struct {
	arrivals []ctb.Arrival
}

func destinationKey(name string) string {
	return strings.ReplaceAll(name, " ", "")
}

func (s *Source) ctbArrivals(ctx context.Context, q query.ETA, kmbStopID string) ([]arrival, error) {
	stopIDs := s.ctbStops(q, kmbStopID)
	if len(stopIDs) == 0 {
		return nil, nil
	}

	direction, all := q.Engine.GetAllDestinationsByDirection(q.Route.RouteNumber, transit.OperatorKMB, "", "", q.Route, kmbStopID)
	directionKeys := make([]string, len(direction))
	for i, destination := range direction {
		directionKeys[i] = destinationKey(destination.Zh)
	}
	// several English names may share one Chinese destination
	directionKeys = util.RemoveDuplicateStrings(directionKeys, nil)
	allKeys := make([]string, len(all))
	for i, destination := range all {
		allKeys[i] = destinationKey(destination.Zh)
	}

	var bucketsMutex sync.Mutex
	buckets := map[string]*destinationBucket{}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(len(stopIDs))
	for _, stopID := range stopIDs {
		stopID := stopID
		p.Go(func(ctx context.Context) error {
			arrivals, err := s.CTB.Arrivals(ctx, stopID, q.Route.RouteNumber)
			if err != nil {
				return err
			}

			bucketsMutex.Lock()
			defer bucketsMutex.Unlock()
			for _, a := range arrivals {
				if a.Co != transit.OperatorCTB.Name() || a.Route != q.Route.RouteNumber {
					continue
				}
				key := closestDestination(destinationKey(a.DestTc), allKeys)
				bucket, exists := buckets[key]
				if !exists {
					bucket = &destinationBucket{}
					buckets[key] = bucket
				}
				bucket.arrivals = append(bucket.arrivals, a)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	var results []arrival
	for _, key := range directionKeys {
		bucket, exists := buckets[key]
		if !exists {
			continue
		}

		sequences := make([]int, len(bucket.arrivals))
		for i, a := range bucket.arrivals {
			sequences[i] = a.Seq
		}
		matchingSeq := source.NearestSequence(sequences, q.StopIndex)
		if matchingSeq < 0 {
			matchingSeq = 0
		}

		usedEtaSeq := map[int]bool{}
		for _, a := range bucket.arrivals {
			if a.Seq != matchingSeq || usedEtaSeq[a.EtaSeq] {
				continue
			}
			usedEtaSeq[a.EtaSeq] = true

			eta, ok := a.Time()
			if !ok {
				continue
			}
			minutes := source.Minutes(eta, q.Now)
			minutesRounded := source.Round(minutes)

			remark := a.Remark(q.Language)
			if q.Language != transit.LanguageEnglish {
				remark = strings.TrimSpace(strings.ReplaceAll(remark, "(尾班車)", ""))
			}

			message := source.AppendRemark(source.MinutesText(q.Language, minutesRounded), remark)
			if message.IsEmpty() {
				continue
			}
			results = append(results, arrival{co: transit.OperatorCTB, minutes: minutes, minutesRounded: minutesRounded, message: message})
		}
	}

	if len(results) == 0 && len(buckets) > 0 {
		log.Debug().Str("route", q.Route.RouteNumber).Strs("stops", stopIDs).Msg("No Citybus arrivals matched the route direction")
	}

	return results, nil
}

// closestDestination maps a Citybus destination onto the nearest known destination by edit distance
func closestDestination(name string, keys []string) string {
	if len(keys) == 0 || slices.Contains(keys, name) {
		return name
	}
	closest := keys[0]
	closestDistance := levenshtein.ComputeDistance(name, closest)
	for _, key := range keys[1:] {
		if distance := levenshtein.ComputeDistance(name, key); distance < closestDistance {
			closest = key
			closestDistance = distance
		}
	}
	return closest
}
