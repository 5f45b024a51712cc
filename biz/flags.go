package biz

// FlagIndexed means the object's text has been extracted and written to
// the search index.
const FlagIndexed int64 = 1

// FlagSearchable means the content type is eligible for text extraction.
const FlagSearchable int64 = 2

// supportedImageTypes is the allowlist of content types that get
// FlagSearchable at ingest time.
var supportedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

func IsSearchableType(contentType string) bool {
	for _, t := range supportedImageTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// InitialFlags computes the flags a fresh catalog row starts with.
func InitialFlags(contentType string) int64 {
	if IsSearchableType(contentType) {
		return FlagSearchable
	}
	return 0
}

// ObjectState is the processing state derived from the two flag bits.
type ObjectState int

const (
	// StateRaw objects are never indexed.
	StateRaw ObjectState = iota
	StateSearchableUnindexed
	StateSearchableIndexed
)

func StateOf(flags int64) ObjectState {
	if flags&FlagSearchable == 0 {
		return StateRaw
	}
	if flags&FlagIndexed == 0 {
		return StateSearchableUnindexed
	}
	return StateSearchableIndexed
}

// EligibleForIndexing reports whether the scheduler should pick the
// object up. The searchable-unindexed -> searchable-indexed transition
// is one-way.
func EligibleForIndexing(flags int64) bool {
	return StateOf(flags) == StateSearchableUnindexed
}
