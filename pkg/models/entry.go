package models

// DocumentPair names two documents to compare.
// Names are resolved by the storage backend of each side.
type DocumentPair struct {
	// Name1 identifies the old (baseline) document
	Name1 string
	// Name2 identifies the new (candidate) document
	Name2 string
}

// ErrorKind classifies why a pair produced no comparison result
type ErrorKind string

const (
	// ErrorNone indicates the pair was compared successfully
	ErrorNone ErrorKind = ""
	// ErrorDeserialization indicates one of the documents could not be read or parsed
	ErrorDeserialization ErrorKind = "deserialization"
	// ErrorComparison indicates the comparison itself failed unexpectedly
	ErrorComparison ErrorKind = "comparison"
	// ErrorCancelled marks a pair abandoned by cancellation; such pairs are
	// dropped before the batch result is returned
	ErrorCancelled ErrorKind = "cancelled"
)

// FilePairComparisonResult is the outcome for one document pair.
// Exactly one of Result or ErrorKind/ErrorMessage is populated.
type FilePairComparisonResult struct {
	Name1        string            `json:"name1"`
	Name2        string            `json:"name2"`
	Result       *ComparisonResult `json:"result,omitempty"`
	ErrorKind    ErrorKind         `json:"error_kind,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
	// FromCache is set when the result was served by the result cache
	FromCache bool `json:"from_cache,omitempty"`
}

// Failed reports whether the pair carries an error instead of a result
func (r *FilePairComparisonResult) Failed() bool {
	return r.Result == nil
}

// IsEqual reports whether the pair was compared and found equal
func (r *FilePairComparisonResult) IsEqual() bool {
	return r.Result != nil && r.Result.IsEqual()
}
