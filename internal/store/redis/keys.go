package redis

// Keys builds the Redis key layout for one bookmark table.
type Keys struct {
	table string
}

// NewKeys returns the key layout rooted at table.
func NewKeys(table string) Keys {
	return Keys{table: table}
}

// Bookmark returns the key holding the JSON record for id.
func (k Keys) Bookmark(id string) string {
	return k.table + ":bookmark:" + id
}

// All returns the key of the set of every stored bookmark ID.
func (k Keys) All() string {
	return k.table + ":bookmarks:all"
}
