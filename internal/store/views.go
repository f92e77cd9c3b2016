package store

import "sort"

// Analytical views. The SQL is shared by SQLite and Postgres, so it sticks
// to COALESCE, CAST and CASE.
var views = map[string]string{
	"view_comprehensive_popularity": `
SELECT
	m.id,
	m.name,
	m.category,
	m.city,
	gm.rating AS map_rating,
	gm.votes AS map_votes,
	poi.checkins AS poi_checkins,
	poi.likes AS poi_likes,
	COALESCE(gm.votes, 0) + COALESCE(poi.checkins, 0) AS total_engagement
FROM monuments m
LEFT JOIN provider_metrics gm ON gm.monument_id = m.id AND gm.source = 'map_provider'
LEFT JOIN provider_metrics poi ON poi.monument_id = m.id AND poi.source = 'points_of_interest'
ORDER BY total_engagement DESC, m.id`,

	"view_hidden_gems": `
SELECT
	m.id,
	m.name,
	m.category,
	m.city,
	gm.rating AS map_rating,
	gm.votes AS map_votes,
	m.description
FROM monuments m
JOIN provider_metrics gm ON gm.monument_id = m.id AND gm.source = 'map_provider'
WHERE gm.rating >= 4.5
  AND gm.votes > 10
  AND gm.votes < 500
ORDER BY gm.rating DESC, gm.votes DESC, m.id`,

	"view_category_performance": `
SELECT
	m.category,
	COUNT(*) AS monument_count,
	ROUND(CAST(AVG(gm.rating) AS NUMERIC), 2) AS avg_map_rating,
	COALESCE(SUM(gm.votes), 0) AS total_map_votes,
	ROUND(CAST(AVG(poi.checkins) AS NUMERIC), 0) AS avg_poi_checkins
FROM monuments m
LEFT JOIN provider_metrics gm ON gm.monument_id = m.id AND gm.source = 'map_provider'
LEFT JOIN provider_metrics poi ON poi.monument_id = m.id AND poi.source = 'points_of_interest'
WHERE m.category <> ''
GROUP BY m.category
ORDER BY total_map_votes DESC, m.category`,

	"view_match_coverage": `
SELECT
	p.source,
	p.tier,
	COUNT(*) AS places,
	ROUND(CAST(AVG(p.distance_m) AS NUMERIC), 1) AS avg_distance_m,
	ROUND(CAST(AVG(p.similarity) AS NUMERIC), 3) AS avg_similarity
FROM provider_places p
GROUP BY p.source, p.tier
ORDER BY p.source, p.tier`,

	"view_price_vs_quality": `
SELECT
	m.id,
	m.name,
	m.price_level,
	gm.rating AS map_rating,
	gm.votes AS map_votes
FROM monuments m
LEFT JOIN provider_metrics gm ON gm.monument_id = m.id AND gm.source = 'map_provider'
WHERE m.price_level <> ''
ORDER BY m.price_level DESC, COALESCE(gm.rating, -1) DESC, m.id`,

	"view_national_monument_prestige": `
SELECT
	m.id,
	m.name,
	m.ticket_price,
	m.visiting_services,
	gm.rating AS map_rating,
	poi.likes AS poi_likes,
	(SELECT COUNT(*) FROM provider_reviews r WHERE r.monument_id = m.id) AS reviews
FROM monuments m
LEFT JOIN provider_metrics gm ON gm.monument_id = m.id AND gm.source = 'map_provider'
LEFT JOIN provider_metrics poi ON poi.monument_id = m.id AND poi.source = 'points_of_interest'
WHERE m.ticket_price <> '' OR m.visiting_services <> ''
ORDER BY COALESCE(gm.rating, -1) DESC, m.id`,

	"view_provenance_summary": `
SELECT
	fp.field,
	fp.source,
	fp.tier,
	COUNT(*) AS changes,
	COUNT(DISTINCT fp.monument_id) AS monuments
FROM field_provenance fp
GROUP BY fp.field, fp.source, fp.tier
ORDER BY fp.field, fp.source, fp.tier`,
}

// ViewNames lists the queryable views in name order.
func ViewNames() []string {
	names := make([]string, 0, len(views))
	for n := range views {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// viewQuery returns the SELECT used to read a view by name.
func viewQuery(name string) (string, bool) {
	if _, ok := views[name]; !ok {
		return "", false
	}
	return "SELECT * FROM " + name, true
}
