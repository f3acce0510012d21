package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/angelmondragon/storefront/pkg/config"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		raw, _ := io.ReadAll(params.Body)
		f.body = string(raw)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestPutSendsBucketKeyAndType(t *testing.T) {
	api := &fakePutter{}
	c := newClient(api, config.S3Config{Bucket: "shop-images", Region: "eu-north-1"})

	if err := c.Put(context.Background(), "abc-shirt.png", strings.NewReader("png"), "image/png", 3); err != nil {
		t.Fatalf("put: %v", err)
	}
	if *api.input.Bucket != "shop-images" || *api.input.Key != "abc-shirt.png" {
		t.Fatalf("unexpected target %s/%s", *api.input.Bucket, *api.input.Key)
	}
	if *api.input.ContentType != "image/png" || *api.input.ContentLength != 3 || api.body != "png" {
		t.Fatalf("unexpected object %+v body=%q", api.input, api.body)
	}
}

func TestPutWrapsErrors(t *testing.T) {
	c := newClient(&fakePutter{err: errors.New("denied")}, config.S3Config{Bucket: "b", Region: "r"})
	if err := c.Put(context.Background(), "k", strings.NewReader(""), "", 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestURL(t *testing.T) {
	c := newClient(nil, config.S3Config{Bucket: "shop-images", Region: "eu-north-1"})
	if got := c.URL("abc-my shirt.png"); got != "https://shop-images.s3.eu-north-1.amazonaws.com/abc-my%20shirt.png" {
		t.Fatalf("unexpected url %s", got)
	}

	c = newClient(nil, config.S3Config{Bucket: "b", Region: "r", PublicBaseURL: "https://cdn.example.com/"})
	if got := c.URL("k.png"); got != "https://cdn.example.com/k.png" {
		t.Fatalf("unexpected url %s", got)
	}
}
