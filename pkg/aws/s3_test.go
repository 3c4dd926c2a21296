package aws

import (
	"affiliate/pkg/config"
	"testing"
)

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AppConfig
		want string
	}{
		{"minio", config.AppConfig{AWSEndpoint: "http://localhost:9000", AWSBucket: "images"}, "http://localhost:9000/images"},
		{"aws", config.AppConfig{AWSBucket: "images", AWSDefaultRegion: "eu-west-1"}, "https://images.s3.eu-west-1.amazonaws.com"},
		{"nothing", config.AppConfig{AWSBucket: "images"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicBaseURL(&tt.cfg); got != tt.want {
				t.Errorf("PublicBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestURLWithoutBase(t *testing.T) {
	s := &S3{}
	if got := s.URL("products/a.png"); got != "products/a.png" {
		t.Fatalf("expected bare key, got %q", got)
	}
	s.publicURL = "http://localhost:9000/images"
	if got := s.URL("products/a.png"); got != "http://localhost:9000/images/products/a.png" {
		t.Fatalf("unexpected url %q", got)
	}
}
