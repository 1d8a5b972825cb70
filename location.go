package lake

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Location is a parsed dataset path. Scheme is empty for local paths.
type Location struct {
	Scheme string
	Bucket string
	// Key is the object key prefix (no leading slash) for object storage, or
	// the filesystem path for local locations.
	Key string
}

// IsS3 reports whether the location is in S3. The Hadoop s3a and s3n schemes
// are accepted as aliases.
func (l Location) IsS3() bool {
	switch l.Scheme {
	case "s3", "s3a", "s3n":
		return true
	}
	return false
}

func (l Location) String() string {
	if l.Scheme == "" {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseLocation splits a URI like s3a://bucket/some/prefix, or a plain local
// path.
func ParseLocation(uri string) (Location, error) {
	i := strings.Index(uri, "://")
	if i < 0 {
		if uri == "" {
			return Location{}, errors.New("empty location")
		}
		return Location{Key: uri}, nil
	}
	loc := Location{Scheme: strings.ToLower(uri[:i])}
	rest := uri[i+3:]
	if j := strings.Index(rest, "/"); j >= 0 {
		loc.Bucket, loc.Key = rest[:j], strings.Trim(rest[j+1:], "/")
	} else {
		loc.Bucket = rest
	}
	if loc.Bucket == "" {
		return Location{}, errors.Errorf("no bucket in %q", uri)
	}
	if !loc.IsS3() {
		return Location{}, errors.Errorf("unsupported scheme %q in %q", loc.Scheme, uri)
	}
	return loc, nil
}

// JoinPath appends path elements to a location URI or local path.
func JoinPath(root string, elem ...string) string {
	i := strings.Index(root, "://")
	if i < 0 {
		return filepath.Join(append([]string{root}, elem...)...)
	}
	scheme, rest := root[:i+3], strings.TrimRight(root[i+3:], "/")
	return scheme + path.Join(append([]string{rest}, elem...)...)
}
