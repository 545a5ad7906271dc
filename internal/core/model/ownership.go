package model

// OwnershipGraph maps a person placeholder such as "<person1>" to the ids of
// the objects that person owns.
type OwnershipGraph map[string][]string

// GraphMetrics summarizes the bipartite person/object graph.
type GraphMetrics struct {
	NumPeople          int     `json:"num_people"`
	NumObjects         int     `json:"num_objects"`
	NumEdges           int     `json:"num_edges"`
	AvgDegreePerPerson float64 `json:"avg_degree_per_person"`
	AvgDegreePerObject float64 `json:"avg_degree_per_object"`
	NumSharedObjects   int     `json:"num_shared_objects"`
	Density            float64 `json:"density"`
	OverlapRatio       float64 `json:"overlap_ratio"`
}

// Values lists the metrics by their JSON name, in declaration order.
func (m GraphMetrics) Values() []NamedValue {
	return []NamedValue{
		{"num_people", float64(m.NumPeople)},
		{"num_objects", float64(m.NumObjects)},
		{"num_edges", float64(m.NumEdges)},
		{"avg_degree_per_person", m.AvgDegreePerPerson},
		{"avg_degree_per_object", m.AvgDegreePerObject},
		{"num_shared_objects", float64(m.NumSharedObjects)},
		{"density", m.Density},
		{"overlap_ratio", m.OverlapRatio},
	}
}

type NamedValue struct {
	Name  string
	Value float64
}
