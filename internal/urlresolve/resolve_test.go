package urlresolve

import "testing"

func TestStripMethodPrefix(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in         string
		wantMethod string
		wantRest   string
	}{
		{"@post/users", "POST", "users"},
		{"@get/u/1", "GET", "u/1"},
		{"/u/1", "", "/u/1"},
		{"@weird/u/1", "", "@weird/u/1"},
		{"@", "", "@"},
	}
	for _, c := range cases {
		method, rest := StripMethodPrefix(c.in)
		if method != c.wantMethod || rest != c.wantRest {
			t.Fatalf("StripMethodPrefix(%q) = (%q, %q), want (%q, %q)", c.in, method, rest, c.wantMethod, c.wantRest)
		}
	}
}

func TestResolveJoinsBaseAndPath(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u/1", nil, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u/1" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/u/1")
	}
}

func TestResolveAbsoluteURLIgnoresBase(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://base", "https://other/x", nil, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://other/x" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://other/x")
	}
}

func TestResolveParamSubstitutionNamed(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u/:id/{sub}", map[string]string{"id": "7", "sub": "profile"}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u/7/profile" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/u/7/profile")
	}
}

func TestResolveParamSubstitutionPositional(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u/:id/:sub", []string{"7", "profile"}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u/7/profile" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/u/7/profile")
	}
}

func TestResolveUnresolvedPlaceholderLeftLiteral(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u/:id", map[string]string{}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u/:id" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/u/:id")
	}
}

func TestResolveParamValueNotEncoded(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u/:id", map[string]string{"id": "a b/c"}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u/a b/c" {
		t.Fatalf("FullURL = %q, want %q (values must not be URL-encoded)", r.FullURL, "https://x/u/a b/c")
	}
}

func TestResolveQueryCommaJoinsArrays(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u", nil, map[string]any{"tags": []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u?tags=a%2Cb" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/u?tags=a%2Cb")
	}
}

func TestResolveQuerySkipsNil(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u", nil, map[string]any{"q": "a", "skip": nil})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u?q=a" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/u?q=a")
	}
}

func TestResolveS3ParamAndQuery(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "/u/:id", map[string]string{"id": "7"}, map[string]any{"q": "a"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.FullURL != "https://x/u/7?q=a" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/u/7?q=a")
	}
}

func TestResolveMethodPrefixStrippedBeforeJoin(t *testing.T) {
	t.Parallel()
	r, err := Resolve("https://x", "@post/users", nil, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.Method != "POST" {
		t.Fatalf("Method = %q, want POST", r.Method)
	}
	if r.FullURL != "https://x/users" {
		t.Fatalf("FullURL = %q, want %q", r.FullURL, "https://x/users")
	}
}
