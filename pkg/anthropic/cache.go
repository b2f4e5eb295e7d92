package anthropic

// BuildCachedSystemBlocks constructs a single system block with a cache
// breakpoint. Extraction sends the same long instruction text on every
// call, so caching it keeps the per-upload input cost down.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: ttl,
			},
		},
	}
}
