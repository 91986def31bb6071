package service

import (
	"blurrer/api/model"
	"blurrer/config"
	"blurrer/converter"
	apperrors "blurrer/shared/errors"
	"context"
	"encoding/base64"
	"errors"
	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image/color"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func newMiniredisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, time.Minute), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, mr := newMiniredisCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "blur:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := &converter.Result{Body: []byte{0x89, 'P', 'N', 'G', 0x00}, Width: 10, Height: 20, Channels: 3}
	require.NoError(t, cache.Set(ctx, "blur:key", want))

	got, ok, err := cache.Get(ctx, "blur:key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	assert.Equal(t, time.Minute, mr.TTL("blur:key"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "blur:key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	job := converter.Job{Kernel: converter.Kernel{Width: 45, Height: 45}, Format: converter.PNG, Mode: converter.ReadColor}
	assert.Equal(t, "blur:abc:45x45:0:0:.png:color", CacheKey("abc", job))
}

func TestBlurEncodedUsesCache(t *testing.T) {
	cache, _ := newMiniredisCache(t)
	s, _ := newTestService(t, nil, WithCache(cache))
	payload := base64.StdEncoding.EncodeToString(solidPNG(t, 6, 6, color.NRGBA{R: 40, G: 80, B: 120, A: 255}))

	first, err := s.BlurEncoded(context.Background(), "req-1", payload)
	require.NoError(t, err)
	second, err := s.BlurEncoded(context.Background(), "req-2", payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBlurUploadReportsCacheHit(t *testing.T) {
	cache, _ := newMiniredisCache(t)
	s, _ := newTestService(t, nil, WithCache(cache))
	data := solidPNG(t, 6, 6, color.NRGBA{R: 10, A: 255})

	req := func() model.UploadRequest {
		return model.UploadRequest{Image: fileHeader(t, "a.png", data), KernelWidth: 3, KernelHeight: 3}
	}

	first, err := s.BlurUpload(context.Background(), "req-1", req())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := s.BlurUpload(context.Background(), "req-2", req())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Width, second.Width)
}

func TestBlurSurvivesCacheOutage(t *testing.T) {
	cache, mr := newMiniredisCache(t)
	mr.Close()

	s, _ := newTestService(t, nil, WithCache(cache))
	payload := base64.StdEncoding.EncodeToString(solidPNG(t, 4, 4, color.White))

	_, err := s.BlurEncoded(context.Background(), "req", payload)
	assert.NoError(t, err)
}

type fakeS3 struct {
	s3iface.S3API

	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)

	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiveStore(t *testing.T) {
	client := &fakeS3{}
	archive := NewS3Archive(client, config.S3{Bucket: "images", Prefix: "blurred"})
	archive.now = func() time.Time { return time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC) }
	archive.newID = func() string { return "0b6c1c1e" }

	key, err := archive.Store(context.Background(), "req-42", converter.JPEG, []byte("jpeg"))
	require.NoError(t, err)

	assert.Equal(t, "blurred/2026/03/09/0b6c1c1e.jpg", key)
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "images", aws.StringValue(client.inputs[0].Bucket))
	assert.Equal(t, "image/jpeg", aws.StringValue(client.inputs[0].ContentType))
	assert.Equal(t, int64(4), aws.Int64Value(client.inputs[0].ContentLength))
	assert.Equal(t, "req-42", aws.StringValue(client.inputs[0].Metadata["Request-Id"]))
	assert.Equal(t, []byte("jpeg"), client.bodies[0])
}

func TestS3ArchiveKeyIgnoresRequestID(t *testing.T) {
	client := &fakeS3{}
	archive := NewS3Archive(client, config.S3{Bucket: "images", Prefix: "blurred"})

	var keys []string
	for _, id := range []string{"../../../../avatars/admin", "abc", "abc"} {
		key, err := archive.Store(context.Background(), id, converter.PNG, []byte("png"))
		require.NoError(t, err)
		keys = append(keys, key)

		assert.True(t, strings.HasPrefix(key, "blurred/"), key)
		assert.NotContains(t, key, "..")
		assert.NotContains(t, key, "avatars")
	}

	assert.NotEqual(t, keys[1], keys[2])
}

func TestBlurArchivesResult(t *testing.T) {
	client := &fakeS3{}
	s, _ := newTestService(t, nil, WithArchive(NewS3Archive(client, config.S3{Bucket: "images", Prefix: "p"})))

	res, err := s.BlurUpload(context.Background(), "req-7", model.UploadRequest{
		Image:        fileHeader(t, "a.png", solidPNG(t, 4, 4, color.White)),
		KernelWidth:  3,
		KernelHeight: 3,
	})
	require.NoError(t, err)

	require.Len(t, client.bodies, 1)
	assert.Equal(t, res.Body, client.bodies[0])
	assert.True(t, strings.HasSuffix(aws.StringValue(client.inputs[0].Key), ".png"))
	assert.Equal(t, "req-7", aws.StringValue(client.inputs[0].Metadata["Request-Id"]))
}

func TestBlurSurvivesArchiveFailure(t *testing.T) {
	client := &fakeS3{err: errors.New("access denied")}
	s, _ := newTestService(t, nil, WithArchive(NewS3Archive(client, config.S3{Bucket: "images"})))

	_, err := s.BlurEncoded(context.Background(), "req", base64.StdEncoding.EncodeToString(solidPNG(t, 4, 4, color.White)))
	assert.NoError(t, err)
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []model.JournalEntry
}

func (m *memoryJournal) Record(_ context.Context, entry model.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	return nil
}

func TestJournalRecordsOutcome(t *testing.T) {
	journal := &memoryJournal{}
	s, _ := newTestService(t, nil, WithJournal(journal))
	data := solidPNG(t, 7, 5, color.White)

	_, err := s.BlurEncoded(context.Background(), "req-ok", base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)

	_, err = s.BlurUpload(context.Background(), "req-bad", model.UploadRequest{
		Image:        fileHeader(t, "a.png", data),
		KernelWidth:  2,
		KernelHeight: 3,
	})
	require.Error(t, err)

	require.Len(t, journal.entries, 2)

	ok := journal.entries[0]
	assert.Equal(t, "req-ok", ok.RequestID)
	assert.Equal(t, model.TransferEncoded, ok.Transfer)
	assert.Equal(t, "native", ok.Engine)
	assert.Equal(t, 45, ok.KernelWidth)
	assert.Equal(t, ".png", ok.Format)
	assert.Equal(t, int64(len(data)), ok.InputBytes)
	assert.Equal(t, 7, ok.Width)
	assert.Equal(t, 5, ok.Height)
	assert.Empty(t, ok.ErrorKind)
	assert.False(t, ok.CreatedAt.IsZero())

	bad := journal.entries[1]
	assert.Equal(t, "req-bad", bad.RequestID)
	assert.Equal(t, model.TransferMultipart, bad.Transfer)
	assert.Equal(t, string(apperrors.KindParams), bad.ErrorKind)
	assert.NotEmpty(t, bad.Error)
}
