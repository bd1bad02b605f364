package analytics

import (
	"sort"
	"time"
)

// GroupBy selects the categorical field used to partition records.
type GroupBy string

const (
	GroupByCategory   GroupBy = "category"
	GroupBySentiment  GroupBy = "sentiment"
	GroupByLocation   GroupBy = "location"
	GroupByDevice     GroupBy = "device"
	GroupByAdCategory GroupBy = "ad_category"
)

// View is one aggregated group: its key, size, click count, and
// click-through rate in percent. CTR is 0 when the group has no impressions.
type View struct {
	Key         string  `json:"key"`
	Count       int     `json:"count"`
	Clicks      int     `json:"clicks"`
	Impressions int     `json:"impressions"`
	CTR         float64 `json:"ctr"`
}

// Summary holds whole-table statistics.
type Summary struct {
	TotalRecords     int               `json:"total_records"`
	DateStart        time.Time         `json:"date_start"`
	DateEnd          time.Time         `json:"date_end"`
	UniqueCategories int               `json:"unique_categories"`
	UniqueLocations  int               `json:"unique_locations"`
	UniqueDevices    int               `json:"unique_devices"`
	TotalClicks      int               `json:"total_clicks"`
	OverallCTR       float64           `json:"overall_ctr"`
	SentimentCounts  map[Sentiment]int `json:"sentiment_counts"`
	TopCategory      string            `json:"top_category"`
	TopSentiment     Sentiment         `json:"top_sentiment"`
	TopLocation      string            `json:"top_location"`
	TopDevice        string            `json:"top_device"`
}

func groupKey(r Record, by GroupBy) string {
	switch by {
	case GroupBySentiment:
		return string(r.UserSentiment)
	case GroupByLocation:
		return r.UserLocation
	case GroupByDevice:
		return r.UserDevice
	case GroupByAdCategory:
		return r.AdCategory
	default:
		return r.MessageCategory
	}
}

func buildViews(records []Record, by GroupBy) []View {
	counts := make(map[string]*View)
	for _, r := range records {
		key := groupKey(r, by)
		v, ok := counts[key]
		if !ok {
			v = &View{Key: key}
			counts[key] = v
		}
		v.Count++
		v.Impressions++
		if r.AdClicked {
			v.Clicks++
		}
	}

	views := make([]View, 0, len(counts))
	for _, v := range counts {
		v.CTR = ctr(v.Clicks, v.Impressions)
		views = append(views, *v)
	}
	return views
}

// Aggregate partitions records by the given field and returns groups sorted
// descending by count. Ties break on the key so results are deterministic.
// An empty input yields an empty slice.
func Aggregate(records []Record, by GroupBy) []View {
	views := buildViews(records, by)
	sort.Slice(views, func(i, j int) bool {
		if views[i].Count != views[j].Count {
			return views[i].Count > views[j].Count
		}
		return views[i].Key < views[j].Key
	})
	return views
}

// AggregateCTR partitions records by the given field and returns groups
// sorted descending by click-through rate, for ad performance views.
func AggregateCTR(records []Record, by GroupBy) []View {
	views := buildViews(records, by)
	sort.Slice(views, func(i, j int) bool {
		if views[i].CTR != views[j].CTR {
			return views[i].CTR > views[j].CTR
		}
		return views[i].Key < views[j].Key
	})
	return views
}

// ctr is clicks over impressions in percent, defined as 0 for an empty group.
func ctr(clicks, impressions int) float64 {
	if impressions == 0 {
		return 0
	}
	return float64(clicks) / float64(impressions) * 100
}

// Summarize computes whole-table statistics. It returns ErrNoData for an
// empty table so callers never divide by zero downstream.
func Summarize(records []Record) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, ErrNoData
	}

	s := Summary{
		TotalRecords:    len(records),
		DateStart:       records[0].Timestamp,
		DateEnd:         records[0].Timestamp,
		SentimentCounts: make(map[Sentiment]int),
	}

	categories := make(map[string]int)
	locations := make(map[string]int)
	devices := make(map[string]int)

	for _, r := range records {
		if r.Timestamp.Before(s.DateStart) {
			s.DateStart = r.Timestamp
		}
		if r.Timestamp.After(s.DateEnd) {
			s.DateEnd = r.Timestamp
		}
		if r.AdClicked {
			s.TotalClicks++
		}
		s.SentimentCounts[r.UserSentiment]++
		categories[r.MessageCategory]++
		locations[r.UserLocation]++
		devices[r.UserDevice]++
	}

	s.UniqueCategories = len(categories)
	s.UniqueLocations = len(locations)
	s.UniqueDevices = len(devices)
	s.OverallCTR = ctr(s.TotalClicks, s.TotalRecords)
	s.TopCategory = modalKey(categories)
	s.TopLocation = modalKey(locations)
	s.TopDevice = modalKey(devices)

	sentimentCounts := make(map[string]int, len(s.SentimentCounts))
	for k, v := range s.SentimentCounts {
		sentimentCounts[string(k)] = v
	}
	s.TopSentiment = Sentiment(modalKey(sentimentCounts))

	return s, nil
}

// modalKey returns the most frequent key, breaking ties lexicographically.
func modalKey(counts map[string]int) string {
	var best string
	bestCount := -1
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}

// PeakHour returns the hour of day (0-23) with the most records, or false
// when no record carries a usable timestamp.
func PeakHour(records []Record) (int, bool) {
	hours := make(map[int]int)
	for _, r := range records {
		if r.Timestamp.IsZero() {
			continue
		}
		hours[r.Timestamp.Hour()]++
	}
	if len(hours) == 0 {
		return 0, false
	}

	best, bestCount := 0, -1
	for h, c := range hours {
		if c > bestCount || (c == bestCount && h < best) {
			best, bestCount = h, c
		}
	}
	return best, true
}
