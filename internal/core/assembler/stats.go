package assembler

import (
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/agenthands/personav/internal/core/model"
)

// Stats summarizes a finished episode set.
type Stats struct {
	Episodes        int     `json:"episodes"`
	MeanGeodesic    float64 `json:"mean_geodesic_distance"`
	MeanEuclidean   float64 `json:"mean_euclidean_distance"`
	AvgSummaryWords float64 `json:"avg_summary_words"`
	MultiInstance   int     `json:"multi_instance_episodes"`
}

// Summarize computes run statistics. Missing distances count as zero.
func Summarize(eps []model.Episode) Stats {
	s := Stats{Episodes: len(eps)}
	if len(eps) == 0 {
		return s
	}
	geo := make([]float64, len(eps))
	euc := make([]float64, len(eps))
	words := make([]float64, len(eps))
	for i, ep := range eps {
		if ep.GeodesicDistance != nil {
			geo[i] = *ep.GeodesicDistance
		}
		if ep.EuclideanDistance != nil {
			euc[i] = *ep.EuclideanDistance
		}
		words[i] = float64(len(strings.Split(ep.Summary, " ")))
		if ep.IsMultiInstance() {
			s.MultiInstance++
		}
	}
	s.MeanGeodesic = stat.Mean(geo, nil)
	s.MeanEuclidean = stat.Mean(euc, nil)
	s.AvgSummaryWords = stat.Mean(words, nil)
	return s
}

// ResponseStats describes the summaries of one LLM response.
type ResponseStats struct {
	MultiObjectOwners  float64 `json:"multi_object_owners"`
	MultiOwnedObjects  float64 `json:"multi_owned_objects"`
	UniqueObjects      float64 `json:"unique_objects"`
	UniqueOwners       float64 `json:"unique_owners"`
	AvgItemsPerSummary float64 `json:"avg_selected_items_per_summary"`
	CategoryDiversity  float64 `json:"category_diversity"`
	AvgSummaryLength   float64 `json:"avg_summary_length"`
}

// ResponseMetrics computes ownership and text statistics for resp. Summary
// length is counted in characters.
func ResponseMetrics(resp model.SummaryResponse) ResponseStats {
	ownerObjects := make(map[string]map[string]struct{})
	objectOwners := make(map[string]map[string]struct{})
	categories := make(map[string]struct{})
	var items, chars int

	for _, s := range resp.Summaries {
		items += len(s.SelectedItems)
		chars += len([]rune(s.Summary))
		for _, it := range s.SelectedItems {
			addPair(ownerObjects, it.Owner, it.ObjectID)
			addPair(objectOwners, it.ObjectID, it.Owner)
			categories[it.ObjectCategory] = struct{}{}
		}
	}

	n := max(len(resp.Summaries), 1)
	return ResponseStats{
		MultiObjectOwners:  float64(countMulti(ownerObjects)),
		MultiOwnedObjects:  float64(countMulti(objectOwners)),
		UniqueObjects:      float64(len(objectOwners)),
		UniqueOwners:       float64(len(ownerObjects)),
		AvgItemsPerSummary: float64(items) / float64(n),
		CategoryDiversity:  float64(len(categories)),
		AvgSummaryLength:   float64(chars) / float64(n),
	}
}

// AggregateResponses averages ResponseMetrics over records.
func AggregateResponses(records []model.ResponseRecord) ResponseStats {
	if len(records) == 0 {
		return ResponseStats{}
	}
	cols := make([][]float64, 7)
	for _, r := range records {
		m := ResponseMetrics(r.Response)
		for i, v := range m.values() {
			cols[i] = append(cols[i], v)
		}
	}
	return ResponseStats{
		MultiObjectOwners:  stat.Mean(cols[0], nil),
		MultiOwnedObjects:  stat.Mean(cols[1], nil),
		UniqueObjects:      stat.Mean(cols[2], nil),
		UniqueOwners:       stat.Mean(cols[3], nil),
		AvgItemsPerSummary: stat.Mean(cols[4], nil),
		CategoryDiversity:  stat.Mean(cols[5], nil),
		AvgSummaryLength:   stat.Mean(cols[6], nil),
	}
}

func (s ResponseStats) values() []float64 {
	return []float64{
		s.MultiObjectOwners, s.MultiOwnedObjects, s.UniqueObjects, s.UniqueOwners,
		s.AvgItemsPerSummary, s.CategoryDiversity, s.AvgSummaryLength,
	}
}

func addPair(m map[string]map[string]struct{}, k, v string) {
	if m[k] == nil {
		m[k] = make(map[string]struct{})
	}
	m[k][v] = struct{}{}
}

func countMulti(m map[string]map[string]struct{}) int {
	n := 0
	for _, set := range m {
		if len(set) > 1 {
			n++
		}
	}
	return n
}
