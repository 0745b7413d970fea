package helpers

import "testing"

func TestPublicURLRoundTrip(t *testing.T) {
	path := "images/uid-my house.jpg-1234"
	u := PublicURL("bucket", path)
	if u != "https://storage.googleapis.com/bucket/images/uid-my%20house.jpg-1234" {
		t.Fatalf("unexpected url %q", u)
	}
	got, ok := ObjectPathFromURL("bucket", u)
	if !ok || got != path {
		t.Fatalf("expected %q, got %q (ok=%v)", path, got, ok)
	}
	if _, ok := ObjectPathFromURL("other", u); ok {
		t.Fatal("expected foreign bucket url to be rejected")
	}
}
