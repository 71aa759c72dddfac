package knowledge

// Cache keys are namespace-prefixed strings joined with ':'. Components are
// not escaped, so a source or title containing ':' can produce the same key
// as a different pair; callers own their naming. Non-ASCII input passes
// through byte-for-byte.

// DocKey returns the key for a document body, e.g. "doc:wikipedia:长城".
func DocKey(source, title string) string {
	return "doc:" + source + ":" + title
}

// FactKey returns the key for an extracted fact, e.g. "fact:纽约.坐标".
func FactKey(identifier string) string {
	return "fact:" + identifier
}

// SearchKey returns the key for a cached search-result list for an entity,
// e.g. "search:wikipedia:朱祁镇".
func SearchKey(source, entity string) string {
	return "search:" + source + ":" + entity
}
