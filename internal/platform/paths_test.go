package platform

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Location
		wantErr bool
	}{
		{"Local", "data/old/", Location{Kind: KindLocal, Path: filepath.Clean("data/old")}, false},
		{"GCSBucketOnly", "gs://corpus", Location{Kind: KindGCS, Path: "gs://corpus", Bucket: "corpus"}, false},
		{"GCSPrefix", "gs://corpus/v1/orders/", Location{Kind: KindGCS, Path: "gs://corpus/v1/orders/", Bucket: "corpus", Prefix: "v1/orders"}, false},
		{"GCSNoBucket", "gs://", Location{}, true},
		{"Empty", "", Location{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var perr *PathError
				assert.True(t, errors.As(err, &perr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverlap(t *testing.T) {
	mustParse := func(s string) Location {
		l, err := ParseLocation(s)
		require.NoError(t, err)
		return l
	}
	root := t.TempDir()

	tests := []struct {
		name    string
		a, b    string
		overlap bool
	}{
		{"IndependentLocal", filepath.Join(root, "old"), filepath.Join(root, "new"), false},
		{"SameLocal", filepath.Join(root, "old"), filepath.Join(root, "old") + "/", true},
		{"NestedLocal", filepath.Join(root, "old"), filepath.Join(root, "old", "sub"), true},
		{"SiblingPrefix", filepath.Join(root, "old"), filepath.Join(root, "older"), false},
		{"DifferentBuckets", "gs://a/x", "gs://b/x", false},
		{"SameBucketDifferentPrefix", "gs://a/old", "gs://a/new", false},
		{"SameBucketNested", "gs://a/old", "gs://a/old/v2", true},
		{"WholeBucket", "gs://a", "gs://a/new", true},
		{"MixedKinds", "gs://a/old", filepath.Join(root, "old"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := Overlap(mustParse(tt.a), mustParse(tt.b))
			assert.Equal(t, tt.overlap, reason != "", reason)
		})
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, filepath.Clean("a/b"), NormalizePath("a/./b/"))
	assert.NoError(t, ValidatePath("a"))
	assert.False(t, IsUNCPath("/tmp"))
}
