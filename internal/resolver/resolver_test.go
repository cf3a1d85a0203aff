package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cbout22/repo-import/internal/config"
)

// newTestServer creates an httptest.Server with route handling for GitHub API endpoints.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := routes[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		t.Logf("unhandled request: %s %s", r.Method, r.URL)
		http.NotFound(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// newTestResolver creates a Resolver whose GitHub API base points at ts.
func newTestResolver(t *testing.T, ts *httptest.Server) *Resolver {
	t.Helper()
	s := config.DefaultSettings()
	if ts != nil {
		s.GitHub.APIBase = ts.URL
	}
	var client *http.Client
	if ts != nil {
		client = ts.Client()
	}
	return New(client, s)
}

func repoInfo(branch string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"default_branch": branch})
	}
}

func TestResolveGitHub_TreeRef(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/acme/demo": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			repoInfo("main")(w, r)
		},
	})
	res := newTestResolver(t, ts)

	got, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo/tree/dev")
	if err != nil {
		t.Fatalf("ResolveGitHub(tree): unexpected error: %v", err)
	}
	if got.FolderName != "demo" {
		t.Errorf("ResolveGitHub(tree): got folder %q, want %q", got.FolderName, "demo")
	}
	if want := "https://codeload.github.com/acme/demo/zip/dev"; got.ArchiveURL != want {
		t.Errorf("ResolveGitHub(tree): got archive %q, want %q", got.ArchiveURL, want)
	}
	if got.Ref != "dev" {
		t.Errorf("ResolveGitHub(tree): got ref %q, want %q", got.Ref, "dev")
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("ResolveGitHub(tree): made %d API calls, want 0", n)
	}
}

func TestResolveGitHub_TreeRefWithSlashes(t *testing.T) {
	t.Parallel()

	res := newTestResolver(t, nil)
	got, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo/tree/feature/login")
	if err != nil {
		t.Fatalf("ResolveGitHub: unexpected error: %v", err)
	}
	if got.Ref != "feature/login" {
		t.Errorf("ResolveGitHub: got ref %q, want %q", got.Ref, "feature/login")
	}
	if !strings.HasSuffix(got.ArchiveURL, "/zip/feature/login") {
		t.Errorf("ResolveGitHub: got archive %q, want suffix /zip/feature/login", got.ArchiveURL)
	}
}

func TestResolveGitHub_DefaultBranch(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/acme/demo": repoInfo("main"),
	})
	res := newTestResolver(t, ts)

	for _, raw := range []string{
		"https://github.com/acme/demo",
		"https://github.com/acme/demo/",
		"https://github.com/acme/demo.git",
		"http://www.github.com/acme/demo?tab=readme#top",
	} {
		got, err := res.ResolveGitHub(context.Background(), raw)
		if err != nil {
			t.Fatalf("ResolveGitHub(%q): unexpected error: %v", raw, err)
		}
		if !strings.HasSuffix(got.ArchiveURL, "/zip/main") {
			t.Errorf("ResolveGitHub(%q): got archive %q, want suffix /zip/main", raw, got.ArchiveURL)
		}
		if got.FolderName != "demo" {
			t.Errorf("ResolveGitHub(%q): got folder %q, want %q", raw, got.FolderName, "demo")
		}
	}
}

func TestResolveGitHub_Idempotent(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/acme/demo": repoInfo("main"),
	})
	res := newTestResolver(t, ts)

	a, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo")
	if err != nil {
		t.Fatal(err)
	}
	b, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("ResolveGitHub twice: %+v != %+v", a, b)
	}
}

func TestResolveGitHub_StatusErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "not found", http.StatusNotFound)
			},
			want: ErrWrongURLType,
		},
		{
			name: "rate limit exhausted",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Used", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusForbidden)
			},
			want: ErrGithubAPILimit,
		},
		{
			name: "forbidden with quota left",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Remaining", "12")
				w.WriteHeader(http.StatusForbidden)
			},
			want: ErrGithubAPIEtc,
		},
		{
			name: "too many requests without headers",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: ErrGithubAPIEtc,
		},
		{
			name: "internal error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: ErrGithubInternal,
		},
		{
			name: "bad gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: ErrGithubAPIEtc,
		},
		{
			name:    "empty default branch",
			handler: repoInfo(""),
			want:    ErrGithubAPIEtc,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			},
			want: ErrGithubAPIEtc,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t, map[string]http.HandlerFunc{"/repos/acme/demo": tc.handler})
			res := newTestResolver(t, ts)

			_, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo")
			if !errors.Is(err, tc.want) {
				t.Fatalf("ResolveGitHub: got error %v, want %v", err, tc.want)
			}
		})
	}
}

func TestResolveGitHub_RateLimitCounters(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/acme/demo": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", "5000")
			w.Header().Set("X-RateLimit-Used", "5000")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		},
	})
	res := newTestResolver(t, ts)

	_, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ResolveGitHub: got %T (%v), want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.RateLimit.Used != "5000" || apiErr.RateLimit.Limit != "5000" {
		t.Errorf("RateLimit = %+v, want used/limit 5000", apiErr.RateLimit)
	}
	if !strings.Contains(err.Error(), "used 5000 of 5000") {
		t.Errorf("Error() = %q, want rate-limit counters", err.Error())
	}
}

func TestResolveGitHub_Timeout(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/acme/demo": func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		},
	})
	s := config.DefaultSettings()
	s.GitHub.APIBase = ts.URL
	s.Timeout = "50ms"
	res := New(ts.Client(), s)

	_, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo")
	if !errors.Is(err, ErrGithubAPIEtc) {
		t.Fatalf("ResolveGitHub(slow): got %v, want ErrGithubAPIEtc", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ResolveGitHub(slow): got %v, want wrapped context.DeadlineExceeded", err)
	}
}

func TestResolveGitHub_WrongURL(t *testing.T) {
	t.Parallel()

	res := newTestResolver(t, nil)
	for _, raw := range []string{
		"ftp://github.com/acme/demo",
		"https://gitlab.com/acme/demo",
		"https://github.com/acme",
		"https://github.com/acme/demo/tree",
		"https://github.com/acme/demo/tree/",
		"https://github.com/acme/demo/blob/main/README.md",
		"https://github.com/acme//demo",
		"not a url",
	} {
		if _, err := res.ResolveGitHub(context.Background(), raw); !errors.Is(err, ErrWrongURLType) {
			t.Errorf("ResolveGitHub(%q): got %v, want ErrWrongURLType", raw, err)
		}
	}
}

func TestResolveGitLab(t *testing.T) {
	t.Parallel()

	res := newTestResolver(t, nil)
	cases := []struct {
		raw, branch string
		folder, ref string
		archive     string
	}{
		{
			raw: "https://gitlab.com/group/proj/tree/v1",
			folder: "proj", ref: "v1",
			archive: "https://gitlab.com/group/proj/-/archive/v1/proj-v1.zip",
		},
		{
			raw: "https://gitlab.com/group/proj/-/tree/develop",
			folder: "proj", ref: "develop",
			archive: "https://gitlab.com/group/proj/-/archive/develop/proj-develop.zip",
		},
		{
			raw: "https://gitlab.com/group/proj",
			folder: "proj", ref: "master",
			archive: "https://gitlab.com/group/proj/-/archive/master/proj-master.zip",
		},
		{
			raw: "https://gitlab.com/group/proj.git", branch: "main",
			folder: "proj", ref: "main",
			archive: "https://gitlab.com/group/proj/-/archive/main/proj-main.zip",
		},
		{
			raw: "https://gitlab.com/group/sub/proj", branch: "release/2",
			folder: "proj", ref: "release/2",
			archive: "https://gitlab.com/group/sub/proj/-/archive/release/2/proj-release-2.zip",
		},
	}

	for _, tc := range cases {
		got, err := res.ResolveGitLab(tc.raw, tc.branch)
		if err != nil {
			t.Errorf("ResolveGitLab(%q, %q): unexpected error: %v", tc.raw, tc.branch, err)
			continue
		}
		if got.FolderName != tc.folder {
			t.Errorf("ResolveGitLab(%q): got folder %q, want %q", tc.raw, got.FolderName, tc.folder)
		}
		if got.Ref != tc.ref {
			t.Errorf("ResolveGitLab(%q): got ref %q, want %q", tc.raw, got.Ref, tc.ref)
		}
		if got.ArchiveURL != tc.archive {
			t.Errorf("ResolveGitLab(%q): got archive %q, want %q", tc.raw, got.ArchiveURL, tc.archive)
		}
	}
}

func TestResolveGitLab_WrongURL(t *testing.T) {
	t.Parallel()

	res := newTestResolver(t, nil)
	for _, raw := range []string{
		"https://github.com/group/proj",
		"ssh://gitlab.com/group/proj",
		"https://gitlab.com/group",
		"https://gitlab.com/group/proj/tree",
		"https://gitlab.com/group/proj/-/blob/main/x.py",
	} {
		if _, err := res.ResolveGitLab(raw, ""); !errors.Is(err, ErrWrongURLType) {
			t.Errorf("ResolveGitLab(%q): got %v, want ErrWrongURLType", raw, err)
		}
	}
}

func TestResolveNotebook(t *testing.T) {
	t.Parallel()

	res := newTestResolver(t, nil)
	cases := []struct {
		raw     string
		folder  string
		ref     string
		archive string
	}{
		{
			raw:     "https://github.com/acme/demo/blob/main/notebooks/intro.ipynb",
			folder:  "intro",
			ref:     "main",
			archive: "https://raw.githubusercontent.com/acme/demo/main/notebooks/intro.ipynb",
		},
		{
			raw:     "https://gitlab.com/group/proj/-/blob/dev/Train%20Model.ipynb",
			folder:  "Train_Model",
			ref:     "dev",
			archive: "https://gitlab.com/group/proj/-/raw/dev/Train%20Model.ipynb",
		},
		{
			raw:     "https://example.com/files/analysis.ipynb#cell-3",
			folder:  "analysis",
			archive: "https://example.com/files/analysis.ipynb",
		},
	}

	for _, tc := range cases {
		got, err := res.ResolveNotebook(tc.raw)
		if err != nil {
			t.Errorf("ResolveNotebook(%q): unexpected error: %v", tc.raw, err)
			continue
		}
		if got.FolderName != tc.folder {
			t.Errorf("ResolveNotebook(%q): got folder %q, want %q", tc.raw, got.FolderName, tc.folder)
		}
		if got.Ref != tc.ref {
			t.Errorf("ResolveNotebook(%q): got ref %q, want %q", tc.raw, got.Ref, tc.ref)
		}
		if got.ArchiveURL != tc.archive {
			t.Errorf("ResolveNotebook(%q): got archive %q, want %q", tc.raw, got.ArchiveURL, tc.archive)
		}
	}

	if _, err := res.ResolveNotebook("https://example.com/script.py"); !errors.Is(err, ErrWrongURLType) {
		t.Errorf("ResolveNotebook(.py): got %v, want ErrWrongURLType", err)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	res := newTestResolver(t, nil)
	cases := []struct {
		raw     string
		want    config.SourceKind
		subpath string
	}{
		{"https://github.com/acme/demo", config.GitHub, ""},
		{"https://gitlab.com/group/proj/tree/v1", config.GitLab, ""},
		{"https://github.com/acme/demo/blob/main/a.ipynb", config.Notebook, "acme/demo/blob/main/a.ipynb"},
		{"https://example.com/x.IPYNB", config.Notebook, "x.IPYNB"},
	}
	for _, tc := range cases {
		src, err := res.Classify(tc.raw, "dev")
		if err != nil {
			t.Errorf("Classify(%q): unexpected error: %v", tc.raw, err)
			continue
		}
		if src.Kind != tc.want {
			t.Errorf("Classify(%q): got kind %q, want %q", tc.raw, src.Kind, tc.want)
		}
		if src.Branch != "dev" || src.URL != tc.raw {
			t.Errorf("Classify(%q): got %+v", tc.raw, src)
		}
		if src.Subpath != tc.subpath {
			t.Errorf("Classify(%q): got subpath %q, want %q", tc.raw, src.Subpath, tc.subpath)
		}
	}

	if _, err := res.Classify("https://bitbucket.org/a/b", ""); !errors.Is(err, ErrWrongURLType) {
		t.Errorf("Classify(bitbucket): got %v, want ErrWrongURLType", err)
	}
}

func TestResolve_Dispatch(t *testing.T) {
	t.Parallel()

	res := newTestResolver(t, nil)
	got, err := res.Resolve(context.Background(), config.SourceReference{
		Kind: config.GitLab, URL: "https://gitlab.com/group/proj", Branch: "v2",
	})
	if err != nil {
		t.Fatalf("Resolve(gitlab): unexpected error: %v", err)
	}
	if got.Ref != "v2" {
		t.Errorf("Resolve(gitlab): got ref %q, want %q", got.Ref, "v2")
	}

	for _, kind := range []config.SourceKind{"svn", ""} {
		_, err = res.Resolve(context.Background(), config.SourceReference{Kind: kind, URL: "https://gitlab.com/group/proj"})
		if !errors.Is(err, ErrWrongURLType) {
			t.Errorf("Resolve(kind %q): got %v, want ErrWrongURLType", kind, err)
		}
	}
}

func TestResolveGitHub_SendsAcceptHeader(t *testing.T) {
	t.Parallel()

	accept := make(chan string, 1)
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/repos/acme/demo": func(w http.ResponseWriter, r *http.Request) {
			accept <- r.Header.Get("Accept")
			repoInfo("main")(w, r)
		},
	})
	res := newTestResolver(t, ts)
	if _, err := res.ResolveGitHub(context.Background(), "https://github.com/acme/demo"); err != nil {
		t.Fatal(err)
	}
	if got := <-accept; got != "application/vnd.github+json" {
		t.Errorf("Accept = %q, want application/vnd.github+json", got)
	}
}
