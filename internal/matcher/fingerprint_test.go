package matcher

import "testing"

func TestNormalizePathIdempotent(t *testing.T) {
	cases := []string{
		"/api/v1/hives/hive_001",
		"api/v1/hives/hive_001",
		"/api//v1///hives/hive_001/",
		"/api/v1/hives/hive_001?x=1",
		"",
		"/",
		"///",
	}
	for _, c := range cases {
		once := NormalizePath(c)
		twice := NormalizePath(once)
		if once != twice {
			t.Errorf("NormalizePath not idempotent for %q: %q != %q", c, once, twice)
		}
	}
}

func TestNormalizePathRules(t *testing.T) {
	cases := map[string]string{
		"api/v1/hives":        "/api/v1/hives",
		"/api//v1///hives/":   "/api/v1/hives",
		"/api/v1/hives?x=1&y=2": "/api/v1/hives",
		"":                    "/",
		"/":                   "/",
		"  /foo/bar  ":        "/foo/bar",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPathTemplateMatches(t *testing.T) {
	if !PathTemplateMatches("/api/v1/hives/{hiveId}", "/api/v1/hives/hive_001") {
		t.Error("expected template to match")
	}
	if PathTemplateMatches("/api/v1/hives/{hiveId}", "/api/v1/hives") {
		t.Error("expected segment-count mismatch to fail")
	}
	if PathTemplateMatches("/api/v1/hives/{hiveId}", "/api/v1/hives/") {
		t.Error("expected empty segment to fail the {name} match")
	}
}

func TestPathTemplateParams(t *testing.T) {
	params := PathTemplateParams("/api/v1/hives/{hiveId}/rooms/{roomId}", "/api/v1/hives/h1/rooms/r2")
	if params == nil {
		t.Fatal("expected match")
	}
	if params["hiveId"] != "h1" || params["roomId"] != "r2" {
		t.Errorf("unexpected params: %+v", params)
	}
}
