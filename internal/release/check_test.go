package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func stubReleases(t *testing.T, status int, body string) *Checker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/0xn0c0de/easyconduit/releases/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewCheckerWithBaseURL(srv.URL)
}

func TestLatestNewerRelease(t *testing.T) {
	c := stubReleases(t, http.StatusOK, `{"tag_name":"v1.2"}`)
	tag, newer, err := c.Latest(context.Background(), "0xn0c0de/easyconduit", "1.0")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if tag != "v1.2" || !newer {
		t.Errorf("got tag=%q newer=%v, want v1.2 newer", tag, newer)
	}
}

func TestLatestSameVersion(t *testing.T) {
	c := stubReleases(t, http.StatusOK, `{"tag_name":"v1.0"}`)
	_, newer, err := c.Latest(context.Background(), "0xn0c0de/easyconduit", "1.0")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if newer {
		t.Error("same version must not report newer")
	}
}

func TestLatestHTTPError(t *testing.T) {
	c := stubReleases(t, http.StatusNotFound, `{"message":"Not Found"}`)
	if _, _, err := c.Latest(context.Background(), "0xn0c0de/easyconduit", "1.0"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestLatestMissingTag(t *testing.T) {
	c := stubReleases(t, http.StatusOK, `{}`)
	if _, _, err := c.Latest(context.Background(), "0xn0c0de/easyconduit", "1.0"); err == nil {
		t.Fatal("expected error for empty tag_name")
	}
}

func TestLatestBadTag(t *testing.T) {
	c := stubReleases(t, http.StatusOK, `{"tag_name":"nightly"}`)
	if _, _, err := c.Latest(context.Background(), "0xn0c0de/easyconduit", "1.0"); err == nil {
		t.Fatal("expected error for unparseable tag")
	}
}
