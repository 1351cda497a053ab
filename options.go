package shardodb

// Options configures a Database at Create/Open time. Grounded on the
// nested-struct-with-defaults pattern used for engine-wide configuration,
// generalized here to the handful of knobs this module actually exposes.
type Options struct {
	// ShardCount is the number of shard files each named index is split
	// across. Default 16.
	ShardCount int

	// SubShardCount is the number of sub-shard directories documents are
	// split across within their primary hash shard. Default 16.
	SubShardCount int

	// ShardCacheSize bounds how many parsed index shards each index
	// engine keeps resident at once. Default 4.
	ShardCacheSize int

	// FsyncOnClose is carried in the configuration with a default of true,
	// but nothing reads it: Close does not fsync any directory. The atomic
	// rename discipline used for every write guarantees no partial state
	// is ever observable regardless of this setting.
	FsyncOnClose bool

	// SkipInitialIndexBuild, when true and the collection already exists
	// on disk, attaches every declared index without rebuilding it from
	// the current document set. An index declared in the schema but
	// absent on disk is lazily built on its first write instead.
	SkipInitialIndexBuild bool
}

// DefaultOptions returns the configuration used when the caller passes a
// zero-value Options.
func DefaultOptions() Options {
	return Options{
		ShardCount:     16,
		SubShardCount:  16,
		ShardCacheSize: 4,
		FsyncOnClose:   true,
	}
}

func (o Options) withDefaults() Options {
	if o.ShardCount <= 0 {
		o.ShardCount = 16
	}
	if o.SubShardCount <= 0 {
		o.SubShardCount = 16
	}
	if o.ShardCacheSize <= 0 {
		o.ShardCacheSize = 4
	}
	return o
}

// QueryOptions carries sort/paging parameters into a Find call that don't
// fit naturally in the where/filter map shape.
type QueryOptions struct {
	SortField string
	SortDesc  bool
	Limit     int
	Skip      int
}
