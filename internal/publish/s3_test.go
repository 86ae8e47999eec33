package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeS3 struct {
	objects map[string]string
	headErr error
	putErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Bucket+"/"+*params.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*params.Bucket+"/"+*params.Key]; ok {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		if err := os.WriteFile(paths[i], []byte(name+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func TestPublish(t *testing.T) {
	client := &fakeS3{objects: map[string]string{}}
	p := NewWithClient(client, Config{Bucket: "nq", Prefix: "/runs/2024/"}, nil)

	files := writeFiles(t, "docs00.json", "docs01.json", "index_table.json")
	urls, err := p.Publish(context.Background(), "passages", files)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	want := []string{
		"s3://nq/runs/2024/passages/docs00.json",
		"s3://nq/runs/2024/passages/docs01.json",
		"s3://nq/runs/2024/passages/index_table.json",
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
	if got := client.objects["nq/runs/2024/passages/docs01.json"]; got != "docs01.json\n" {
		t.Fatalf("object body = %q", got)
	}
}

func TestPublishRefusesOverwrite(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"nq/passages/docs00.json": "old"}}
	files := writeFiles(t, "docs00.json")

	_, err := NewWithClient(client, Config{Bucket: "nq"}, nil).Publish(context.Background(), "passages", files)
	if !errors.Is(err, ErrObjectExists) {
		t.Fatalf("Publish() error = %v, want ErrObjectExists", err)
	}

	if _, err := NewWithClient(client, Config{Bucket: "nq", Overwrite: true}, nil).Publish(context.Background(), "passages", files); err != nil {
		t.Fatalf("Publish() with overwrite error = %v", err)
	}
	if client.objects["nq/passages/docs00.json"] != "docs00.json\n" {
		t.Fatal("object was not replaced")
	}
}

func TestPublishErrors(t *testing.T) {
	files := writeFiles(t, "docs00.json")

	headFail := &fakeS3{objects: map[string]string{}, headErr: &smithy.GenericAPIError{Code: "AccessDenied"}}
	if _, err := NewWithClient(headFail, Config{Bucket: "nq"}, nil).Publish(context.Background(), "c", files); err == nil {
		t.Fatal("expected head error")
	}

	headNotFound := &fakeS3{objects: map[string]string{}, headErr: &smithy.GenericAPIError{Code: "NotFound"}}
	if _, err := NewWithClient(headNotFound, Config{Bucket: "nq"}, nil).Publish(context.Background(), "c", files); err != nil {
		t.Fatalf("generic NotFound should be treated as absent: %v", err)
	}

	putFail := &fakeS3{objects: map[string]string{}, putErr: errors.New("denied")}
	if _, err := NewWithClient(putFail, Config{Bucket: "nq"}, nil).Publish(context.Background(), "c", files); err == nil {
		t.Fatal("expected put error")
	}

	missing := &fakeS3{objects: map[string]string{}}
	if _, err := NewWithClient(missing, Config{Bucket: "nq"}, nil).Publish(context.Background(), "c", []string{"/nonexistent/file.json"}); err == nil {
		t.Fatal("expected open error")
	}
}

func TestParseURL(t *testing.T) {
	cfg, err := ParseURL("s3://bucket/some/prefix/", Config{Region: "eu-west-1"})
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	if cfg.Bucket != "bucket" || cfg.Prefix != "some/prefix" || cfg.Region != "eu-west-1" {
		t.Fatalf("ParseURL() = %+v", cfg)
	}
	for _, bad := range []string{"https://bucket/x", "s3:///x", "bucket"} {
		if _, err := ParseURL(bad, Config{}); err == nil {
			t.Fatalf("ParseURL(%q) expected error", bad)
		}
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("New() expected error without bucket")
	}
}
