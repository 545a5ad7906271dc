package driver

var IndexQueries = []string{
	"CREATE INDEX ON :GraphSample(uuid);",
	"CREATE INDEX ON :GraphSample(run_id);",
	"CREATE INDEX ON :Person(sample_uuid);",
	"CREATE INDEX ON :Object(object_id);",
}

const (
	SaveGraphSampleQuery = `
		CREATE (s:GraphSample {uuid: $uuid})
		SET s.run_id = $run_id,
			s.custom_id = $custom_id,
			s.scene = $scene,
			s.floor = $floor,
			s.tier = $tier,
			s.accepted = $accepted,
			s.attempts = $attempts,
			s.created_at = $created_at,
			s.num_people = $num_people,
			s.num_objects = $num_objects,
			s.num_edges = $num_edges,
			s.avg_degree_per_person = $avg_degree_per_person,
			s.avg_degree_per_object = $avg_degree_per_object,
			s.num_shared_objects = $num_shared_objects,
			s.density = $density,
			s.overlap_ratio = $overlap_ratio
		RETURN s.uuid AS uuid
	`

	SaveOwnershipEdgesQuery = `
		MATCH (s:GraphSample {uuid: $uuid})
		UNWIND $edges AS edge
		MERGE (p:Person {key: edge.person, sample_uuid: $uuid})
		MERGE (o:Object {object_id: edge.object_id, scene: $scene})
		MERGE (s)-[:HAS_PERSON]->(p)
		MERGE (p)-[:OWNS {sample_uuid: $uuid}]->(o)
		RETURN count(*) AS edges
	`

	GetRunMetricsQuery = `
		MATCH (s:GraphSample {run_id: $run_id})
		RETURN s.num_people AS num_people,
			s.num_objects AS num_objects,
			s.num_edges AS num_edges,
			s.avg_degree_per_person AS avg_degree_per_person,
			s.avg_degree_per_object AS avg_degree_per_object,
			s.num_shared_objects AS num_shared_objects,
			s.density AS density,
			s.overlap_ratio AS overlap_ratio
		ORDER BY s.created_at
	`

	GetSampleGraphQuery = `
		MATCH (s:GraphSample {uuid: $uuid})-[:HAS_PERSON]->(p:Person)-[:OWNS]->(o:Object)
		RETURN p.key AS person, collect(o.object_id) AS objects
	`
)
