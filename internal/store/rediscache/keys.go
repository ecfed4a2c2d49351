package rediscache

const (
	// KeyPrefixPage is the prefix for cached upstream page bodies
	KeyPrefixPage = "harvester:page:"
)

// PageKey returns the Redis key for a cached page fetch
func PageKey(url string) string {
	return KeyPrefixPage + url
}
