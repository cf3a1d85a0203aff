package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cbout22/repo-import/internal/config"
)

// Resolver turns source URLs into downloadable archive URLs and folder names.
// It performs at most one network call per resolution (the GitHub default
// branch lookup) and never touches storage.
type Resolver struct {
	client  *http.Client
	github  config.GitHubSettings
	gitlab  config.GitLabSettings
	timeout time.Duration
}

// New creates a Resolver with the given (authenticated) HTTP client.
// A nil settings value selects config.DefaultSettings.
func New(client *http.Client, settings *config.Settings) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return &Resolver{
		client:  client,
		github:  settings.GitHub,
		gitlab:  settings.GitLab,
		timeout: settings.TimeoutDuration(),
	}
}

// Classify builds a SourceReference for raw. URLs whose path ends in .ipynb
// are notebooks regardless of host.
func (r *Resolver) Classify(raw, branch string) (config.SourceReference, error) {
	u, err := parseHTTPURL(raw)
	if err != nil {
		return config.SourceReference{}, err
	}

	src := config.SourceReference{URL: raw, Branch: branch}
	switch {
	case strings.HasSuffix(strings.ToLower(u.Path), ".ipynb"):
		src.Kind = config.Notebook
		src.Subpath = strings.TrimPrefix(u.Path, "/")
	case hostMatches(u.Host, r.github.Host):
		src.Kind = config.GitHub
	case hostMatches(u.Host, r.gitlab.Host):
		src.Kind = config.GitLab
	default:
		return config.SourceReference{}, wrongURL(raw, "unsupported host %q", u.Host)
	}
	return src, nil
}

// Resolve dispatches on the kind of src.
func (r *Resolver) Resolve(ctx context.Context, src config.SourceReference) (config.ResolvedArchive, error) {
	if !src.Kind.IsValid() {
		return config.ResolvedArchive{}, wrongURL(src.URL, "unknown source kind %q (want one of %v)", src.Kind, config.ValidSourceKinds())
	}
	switch src.Kind {
	case config.GitHub:
		return r.ResolveGitHub(ctx, src.URL)
	case config.Notebook:
		return r.ResolveNotebook(src.URL)
	default:
		return r.ResolveGitLab(src.URL, src.Branch)
	}
}

// ResolveGitHub resolves a github.com repository URL.
//
// With /tree/<ref> the ref is taken from the URL; otherwise the repository's
// default branch is looked up through the API.
func (r *Resolver) ResolveGitHub(ctx context.Context, raw string) (config.ResolvedArchive, error) {
	u, err := parseHTTPURL(raw)
	if err != nil {
		return config.ResolvedArchive{}, err
	}
	if !hostMatches(u.Host, r.github.Host) {
		return config.ResolvedArchive{}, wrongURL(raw, "not a %s URL", r.github.Host)
	}

	segs, err := repoSegments(raw, u)
	if err != nil {
		return config.ResolvedArchive{}, err
	}
	if len(segs) < 2 {
		return config.ResolvedArchive{}, wrongURL(raw, "expected /<owner>/<repo>")
	}
	owner, repo := segs[0], segs[1]

	var ref string
	switch {
	case len(segs) >= 3 && segs[2] == "tree":
		ref = strings.Join(segs[3:], "/")
		if ref == "" {
			return config.ResolvedArchive{}, wrongURL(raw, "missing ref after /tree/")
		}
	case len(segs) == 2:
		ref, err = r.DefaultBranch(ctx, owner, repo)
		if err != nil {
			return config.ResolvedArchive{}, err
		}
	default:
		return config.ResolvedArchive{}, wrongURL(raw, "expected /<owner>/<repo> or /<owner>/<repo>/tree/<ref>")
	}

	archive := config.ResolvedArchive{
		ArchiveURL: joinURL(r.github.ArchiveBase, owner, repo, "zip", ref),
		FolderName: config.SanitizeFolderName(repo),
		Ref:        ref,
	}
	return finalize(raw, archive)
}

// DefaultBranch asks the GitHub API for the default branch of owner/repo.
func (r *Resolver) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := joinURL(r.github.APIBase, "repos", owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &APIError{Kind: ErrGithubAPIEtc, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &APIError{Kind: ErrGithubAPIEtc, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().Str("url", endpoint).Int("status", resp.StatusCode).Msg("repository metadata lookup")

	switch resp.StatusCode {
	case http.StatusOK:
		var repoInfo struct {
			DefaultBranch string `json:"default_branch"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&repoInfo); err != nil {
			return "", &APIError{Kind: ErrGithubAPIEtc, URL: endpoint, StatusCode: resp.StatusCode,
				Err: fmt.Errorf("decoding repo info: %w", err)}
		}
		if repoInfo.DefaultBranch == "" {
			return "", &APIError{Kind: ErrGithubAPIEtc, URL: endpoint, StatusCode: resp.StatusCode,
				Err: fmt.Errorf("could not determine default branch for %s/%s", owner, repo)}
		}
		return repoInfo.DefaultBranch, nil

	case http.StatusNotFound:
		return "", &APIError{Kind: ErrWrongURLType, URL: endpoint, StatusCode: resp.StatusCode}

	case http.StatusForbidden, http.StatusTooManyRequests:
		rl := RateLimit{
			Limit:     resp.Header.Get("X-RateLimit-Limit"),
			Used:      resp.Header.Get("X-RateLimit-Used"),
			Remaining: resp.Header.Get("X-RateLimit-Remaining"),
		}
		kind := ErrGithubAPIEtc
		if rl.Exhausted() {
			kind = ErrGithubAPILimit
		}
		log.Warn().
			Int("status", resp.StatusCode).
			Str("limit", rl.Limit).
			Str("used", rl.Used).
			Str("remaining", rl.Remaining).
			Msg("github API refused the request")
		return "", &APIError{Kind: kind, URL: endpoint, StatusCode: resp.StatusCode, RateLimit: rl}

	case http.StatusInternalServerError:
		return "", &APIError{Kind: ErrGithubInternal, URL: endpoint, StatusCode: resp.StatusCode}
	}

	return "", &APIError{Kind: ErrGithubAPIEtc, URL: endpoint, StatusCode: resp.StatusCode}
}

// ResolveGitLab resolves a gitlab.com project URL. branch overrides the
// default ref unless the URL names one through /tree/.
func (r *Resolver) ResolveGitLab(raw, branch string) (config.ResolvedArchive, error) {
	u, err := parseHTTPURL(raw)
	if err != nil {
		return config.ResolvedArchive{}, err
	}
	if !hostMatches(u.Host, r.gitlab.Host) {
		return config.ResolvedArchive{}, wrongURL(raw, "not a %s URL", r.gitlab.Host)
	}

	segs, err := repoSegments(raw, u)
	if err != nil {
		return config.ResolvedArchive{}, err
	}

	ref := r.gitlab.DefaultBranch
	if ref == "" {
		ref = "master"
	}
	if branch != "" {
		ref = branch
	}

	project := segs
	if i := indexOf(segs, "tree"); i >= 0 {
		project = segs[:i]
		if n := len(project); n > 0 && project[n-1] == "-" {
			project = project[:n-1]
		}
		if i == len(segs)-1 {
			return config.ResolvedArchive{}, wrongURL(raw, "missing ref after /tree/")
		}
		ref = segs[len(segs)-1]
	} else if indexOf(segs, "-") >= 0 {
		return config.ResolvedArchive{}, wrongURL(raw, "expected a project or /tree/ URL")
	}
	if len(project) < 2 {
		return config.ResolvedArchive{}, wrongURL(raw, "expected /<namespace>/<project>")
	}

	folder := project[len(project)-1]
	base := u.Scheme + "://" + u.Host
	parts := append(append([]string{}, project...), "-", "archive", ref,
		folder+"-"+strings.ReplaceAll(ref, "/", "-")+".zip")

	archive := config.ResolvedArchive{
		ArchiveURL: joinURL(base, parts...),
		FolderName: config.SanitizeFolderName(folder),
		Ref:        ref,
	}
	return finalize(raw, archive)
}

// ResolveNotebook resolves a URL pointing at a single .ipynb file. GitHub and
// GitLab "blob" pages are rewritten to their raw download form.
func (r *Resolver) ResolveNotebook(raw string) (config.ResolvedArchive, error) {
	u, err := parseHTTPURL(raw)
	if err != nil {
		return config.ResolvedArchive{}, err
	}
	if !strings.HasSuffix(strings.ToLower(u.Path), ".ipynb") {
		return config.ResolvedArchive{}, wrongURL(raw, "not a notebook (.ipynb) URL")
	}

	segs, err := repoSegments(raw, u)
	if err != nil {
		return config.ResolvedArchive{}, err
	}

	archiveURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
	var ref string
	switch {
	case hostMatches(u.Host, r.github.Host) && len(segs) >= 5 && segs[2] == "blob":
		ref = segs[3]
		archiveURL = joinURL(r.github.RawBase, append([]string{segs[0], segs[1], ref}, segs[4:]...)...)
	case hostMatches(u.Host, r.gitlab.Host):
		if i := indexOf(segs, "blob"); i > 0 && segs[i-1] == "-" && i+1 < len(segs) {
			ref = segs[i+1]
			rewritten := append(append([]string{}, segs[:i]...), "raw")
			rewritten = append(rewritten, segs[i+1:]...)
			archiveURL = joinURL(u.Scheme+"://"+u.Host, rewritten...)
		}
	}

	stem := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	archive := config.ResolvedArchive{
		ArchiveURL: archiveURL,
		FolderName: config.SanitizeFolderName(stem),
		Ref:        ref,
	}
	return finalize(raw, archive)
}

// finalize enforces the ResolvedArchive invariants.
func finalize(raw string, a config.ResolvedArchive) (config.ResolvedArchive, error) {
	if err := a.Validate(); err != nil {
		return config.ResolvedArchive{}, fmt.Errorf("%w: %s: %v", ErrWrongURLType, raw, err)
	}
	return a, nil
}

// parseHTTPURL parses raw and requires an http or https scheme with a host.
func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, wrongURL(raw, "%v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, wrongURL(raw, "scheme must be http or https")
	}
	if u.Host == "" {
		return nil, wrongURL(raw, "missing host")
	}
	return u, nil
}

// repoSegments splits the URL path into segments after stripping a trailing
// slash and a trailing .git. Empty interior segments are rejected.
func repoSegments(raw string, u *url.URL) ([]string, error) {
	p := strings.TrimSuffix(u.Path, "/")
	p = strings.TrimSuffix(p, ".git")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil, nil
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return nil, wrongURL(raw, "malformed path %q", u.Path)
		}
	}
	return segs, nil
}

func hostMatches(host, want string) bool {
	host = strings.ToLower(host)
	want = strings.ToLower(want)
	return want != "" && (host == want || host == "www."+want)
}

func indexOf(segs []string, s string) int {
	for i, v := range segs {
		if v == s {
			return i
		}
	}
	return -1
}

// joinURL appends path-escaped parts to base. Parts may contain slashes,
// which are kept as separators.
func joinURL(base string, parts ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			b.WriteByte('/')
			b.WriteString(url.PathEscape(seg))
		}
	}
	return b.String()
}
