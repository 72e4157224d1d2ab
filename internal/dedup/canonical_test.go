package dedup

import "testing"

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://ArXiv.ORG/abs/2401.12345",
			want: "https://arxiv.org/abs/2401.12345",
		},
		{
			name: "strips default https port",
			in:   "https://example.com:443/bench",
			want: "https://example.com/bench",
		},
		{
			name: "keeps explicit port",
			in:   "http://example.com:8080/bench",
			want: "http://example.com:8080/bench",
		},
		{
			name: "drops utm and tracking params, sorts rest",
			in:   "https://example.com/p?utm_source=x&b=2&ref=tw&a=1&fbclid=zz",
			want: "https://example.com/p?a=1&b=2",
		},
		{
			name: "strips fragment and trailing slash",
			in:   "https://example.com/bench/#results",
			want: "https://example.com/bench",
		},
		{
			name: "strips arxiv revision suffix",
			in:   "https://arxiv.org/abs/2401.12345v3",
			want: "https://arxiv.org/abs/2401.12345",
		},
		{
			name: "arxiv revision strip on mirror host",
			in:   "https://export.arxiv.org/abs/2312.00752v2",
			want: "https://export.arxiv.org/abs/2312.00752",
		},
		{
			name: "non-arxiv host keeps version-looking path",
			in:   "https://example.com/abs/2401.12345v3",
			want: "https://example.com/abs/2401.12345v3",
		},
		{
			name: "schemeless input rejected",
			in:   "example.com/path",
			want: "",
		},
		{
			name: "empty input",
			in:   "   ",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Canonicalize(tc.in)
			if got != tc.want {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalizeKeepsOriginsDistinct(t *testing.T) {
	t.Parallel()

	ported := Canonicalize("http://example.com:8080/bench")
	portless := Canonicalize("http://example.com/bench")
	if ported == portless {
		t.Fatalf("distinct origins collapsed to %q", ported)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"HTTPS://ArXiv.ORG:443/abs/2401.12345v2?utm_campaign=feed&b=2&a=1#top",
		"https://github.com/org/repo/",
		"http://example.com:8080/x//y/?ref=rss",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
