package mock

import (
	"bytes"
	"io/ioutil"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3 is an in-memory S3 client covering the calls lake makes. It also
// serves as an s3manager uploader. Calls outside that set panic.
type S3 struct {
	s3iface.S3API

	mu      sync.Mutex
	objects map[string]map[string][]byte

	// PageSize limits the keys returned per list page. Zero means 1000.
	PageSize int
	// DeleteCalls counts DeleteObjects requests.
	DeleteCalls int
}

// NewS3 returns an empty fake.
func NewS3() *S3 {
	return &S3{objects: make(map[string]map[string][]byte)}
}

// Put stores an object.
func (m *S3) Put(bucket, key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[bucket] == nil {
		m.objects[bucket] = make(map[string][]byte)
	}
	m.objects[bucket][key] = body
}

// Object returns an object's contents.
func (m *S3) Object(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[bucket][key]
	return b, ok
}

// Keys returns every key in bucket with the given prefix, sorted.
func (m *S3) Keys(bucket, prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for k := range m.objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ListObjectsPagesWithContext implements s3iface.S3API.
func (m *S3) ListObjectsPagesWithContext(ctx aws.Context, in *s3.ListObjectsInput, fn func(*s3.ListObjectsOutput, bool) bool, opts ...request.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys := m.Keys(aws.StringValue(in.Bucket), aws.StringValue(in.Prefix))
	size := m.PageSize
	if size <= 0 {
		size = 1000
	}
	for start := 0; start == 0 || start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		page := &s3.ListObjectsOutput{Contents: make([]*s3.Object, 0, end-start)}
		for _, k := range keys[start:end] {
			page.Contents = append(page.Contents, &s3.Object{Key: aws.String(k)})
		}
		if !fn(page, end == len(keys)) || end == len(keys) {
			break
		}
	}
	return nil
}

// GetObjectWithContext implements s3iface.S3API.
func (m *S3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	b, ok := m.Object(aws.StringValue(in.Bucket), aws.StringValue(in.Key))
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key "+aws.StringValue(in.Key), nil)
	}
	return &s3.GetObjectOutput{
		Body:          ioutil.NopCloser(bytes.NewReader(b)),
		ContentLength: aws.Int64(int64(len(b))),
	}, nil
}

// DeleteObjectsWithContext implements s3iface.S3API.
func (m *S3) DeleteObjectsWithContext(ctx aws.Context, in *s3.DeleteObjectsInput, opts ...request.Option) (*s3.DeleteObjectsOutput, error) {
	if len(in.Delete.Objects) > 1000 {
		return nil, awserr.New("MalformedXML", "too many keys", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	out := &s3.DeleteObjectsOutput{}
	for _, obj := range in.Delete.Objects {
		delete(m.objects[aws.StringValue(in.Bucket)], aws.StringValue(obj.Key))
		out.Deleted = append(out.Deleted, &s3.DeletedObject{Key: obj.Key})
	}
	return out, nil
}

// Upload implements s3manageriface.UploaderAPI.
func (m *S3) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return m.UploadWithContext(aws.BackgroundContext(), in, opts...)
}

// UploadWithContext implements s3manageriface.UploaderAPI.
func (m *S3) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	b, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.Put(aws.StringValue(in.Bucket), aws.StringValue(in.Key), b)
	return &s3manager.UploadOutput{Location: "s3://" + aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Key)}, nil
}
