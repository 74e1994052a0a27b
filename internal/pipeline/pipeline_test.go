package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/navigation"
	"git.home.luguber.info/inful/sitegen/internal/routes"
	helpers "git.home.luguber.info/inful/sitegen/internal/testutil/testutils"
)

const siteConfig = `
source_dir: site
output_dir: public
sitename: Example
site_url: https://example.org/
blogpost_template: post.html
sources:
  "static/**": static
  "templates/**/*.html": template
  "pages/*.html": page
  "posts/*.md": blogpost
  "tags/tag.html": tag_page
  "feed.xml": DynamicContentBlogpostRssPage
routes:
  home: /
  about: /about
  post: /blog/{year}/{month}/{slug}
  tag: /blog/tags/{tag}
  feed: /feed.xml
`

func siteFiles() map[string]string {
	return map[string]string{
		"static/css/site.css": "body{}",
		"templates/post.html": `<article><h1>{{ .title }}</h1>{{ .content }}</article>`,
		"pages/index.html": `{
  "route": "home",
  "title": "Home",
  "navbar": {"index": 0}
}

<h1>{{ .sitename }}</h1>{{ range blogposts_all 10 }}<a href="{{ .URL }}">{{ .Title }}</a>{{ end }}`,
		"pages/about.html": `{
  "route": "about",
  "title": "About",
  "navbar": {"index": 1}
}

{{ range .navbar }}{{ if .Active }}*{{ end }}{{ .Title }};{{ end }}`,
		"posts/first.md": `{
  "route": "post",
  "title": "First",
  "date": "2024/1/15",
  "excerpt": "one",
  "tags": ["go", "web"]
}

Hello *world*
`,
		"posts/second.md": `{
  "route": "post",
  "title": "Second",
  "date": "2024/03/02",
  "excerpt": "two",
  "tags": ["go"]
}

Second post
`,
		"tags/tag.html": `{
  "route": "tag",
  "title": "Tag"
}

{{ .tag }}:{{ range blogposts_tagged 10 .tag }}{{ .Slug }};{{ end }}`,
		"feed.xml": `{
  "route": "feed",
  "title": "Feed",
  "exclude_from_sitemap": true
}

{{ range .sitemap }}{{ . }} {{ end }}`,
	}
}

// newSite writes files below root/site and returns the loaded configuration.
func newSite(t *testing.T, root, cfgText string, files map[string]string) *config.Config {
	t.Helper()
	helpers.WriteTree(t, filepath.Join(root, "site"), files)
	cfg, err := config.Parse([]byte(cfgText))
	require.NoError(t, err)
	_, err = config.Normalize(cfg, root)
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func TestRun_FullSite(t *testing.T) {
	root := t.TempDir()
	cfg := newSite(t, root, siteConfig, siteFiles())

	report, err := New(cfg).Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)

	out := helpers.NewFileAssertions(t, cfg.OutputDir)
	assert.Equal(t, []string{
		"about/index.html",
		"blog/2024/01/first/index.html",
		"blog/2024/03/second/index.html",
		"blog/tags/go/index.html",
		"blog/tags/web/index.html",
		"feed.xml",
		"index.html",
		"static/css/site.css",
	}, out.Files())

	out.AssertFileEquals("static/css/site.css", "body{}").
		AssertFileEquals("index.html", `<h1>Example</h1><a href="/blog/2024/03/second">Second</a><a href="/blog/2024/01/first">First</a>`).
		AssertFileEquals("about/index.html", "Home;*About;").
		AssertFileContains("blog/2024/01/first/index.html", "<article><h1>First</h1><p>Hello <em>world</em></p>").
		AssertFileEquals("blog/tags/go/index.html", "go:second;first;").
		AssertFileEquals("blog/tags/web/index.html", "web:first;").
		AssertFileEquals("feed.xml", "/ /about /blog/2024/01/first /blog/2024/03/second /blog/tags/go /blog/tags/web ")

	assert.Equal(t, 7, report.PagesRendered)
	assert.Equal(t, 1, report.AssetsCopied)
	assert.Equal(t, 2, report.TagPages)
	assert.Equal(t, 1, report.Templates)
	assert.Equal(t, 2, report.RecordsByKind[content.KindBlogPost])
	assert.Equal(t, 3, report.RecordsByKind[content.KindTagPageTemplate])
	assert.Contains(t, report.Fingerprints, "posts/first.md")
	assert.NotContains(t, report.Fingerprints, "static/css/site.css")
	for _, def := range defaultStages() {
		assert.Equal(t, StageCount{Success: 1}, report.StageCounts[def.Name], def.Name)
		assert.Contains(t, report.StageDurations, def.Name)
	}
	assert.NotEmpty(t, report.RunID)
	assert.Contains(t, report.Summary(), "outcome=success")
}

func TestRun_IsRepeatable(t *testing.T) {
	root := t.TempDir()
	cfg := newSite(t, root, siteConfig, siteFiles())
	p := New(cfg)

	first, err := p.Run(t.Context())
	require.NoError(t, err)
	want := helpers.NewFileAssertions(t, cfg.OutputDir).ReadFile("feed.xml")

	second, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Fingerprints, second.Fingerprints)
	assert.Equal(t, want, helpers.NewFileAssertions(t, cfg.OutputDir).ReadFile("feed.xml"))
}

func TestRun_CleanOutputRemovesStaleFiles(t *testing.T) {
	root := t.TempDir()
	cfg := newSite(t, root, siteConfig, siteFiles())
	helpers.WriteTree(t, cfg.OutputDir, map[string]string{"stale.html": "old"})

	_, err := New(cfg).Run(t.Context())
	require.NoError(t, err)
	helpers.NewFileAssertions(t, cfg.OutputDir).AssertFileExists("stale.html")

	cfg.Build.CleanOutput = true
	_, err = New(cfg).Run(t.Context())
	require.NoError(t, err)
	helpers.NewFileAssertions(t, cfg.OutputDir).
		AssertNotExists("stale.html").
		AssertFileExists("index.html")
}

func TestRun_FatalPathsWriteNothing(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		category ferrors.ErrorCategory
		target   error
	}{
		{
			name: "missing date",
			files: map[string]string{
				"posts/first.md": "{\n  \"route\": \"post\",\n  \"title\": \"First\",\n  \"excerpt\": \"x\"\n}\n\nbody",
			},
			category: ferrors.CategoryContent,
			target:   content.ErrMissingDate,
		},
		{
			name: "unresolved placeholder",
			files: map[string]string{
				"pages/index.html": "{\n  \"route\": \"post\",\n  \"title\": \"Home\"\n}\n\nbody",
			},
			category: ferrors.CategoryConfig,
			target:   routes.ErrUnresolvedPlaceholder,
		},
		{
			name: "unknown route",
			files: map[string]string{
				"pages/index.html": "{\n  \"route\": \"nowhere\",\n  \"title\": \"Home\"\n}\n\nbody",
			},
			category: ferrors.CategoryConfig,
			target:   routes.ErrUnknownRoute,
		},
		{
			name: "two primaries",
			files: map[string]string{
				"pages/index.html": "{\n  \"route\": \"home\",\n  \"title\": \"Home\",\n  \"navbar\": {\"index\": 0, \"group\": \"g\", \"is_primary\": true}\n}\n\nA",
				"pages/about.html": "{\n  \"route\": \"about\",\n  \"title\": \"About\",\n  \"navbar\": {\"index\": 1, \"group\": \"g\", \"is_primary\": true}\n}\n\nB",
			},
			category: ferrors.CategoryConfig,
			target:   navigation.ErrMultiplePrimaries,
		},
		{
			name: "malformed header",
			files: map[string]string{
				"pages/index.html": "no header here",
			},
			category: ferrors.CategoryConfig,
		},
		{
			name: "header key without value",
			files: map[string]string{
				"pages/about.html": "{\n  \"route\": \"about\",\n  \"title\": \"About\",\n  \"navbar\": \n}\n\nbody",
			},
			category: ferrors.CategoryConfig,
			target:   frontmatter.ErrMalformedHeader,
		},
		{
			name: "template error",
			files: map[string]string{
				"pages/index.html": "{\n  \"route\": \"home\",\n  \"title\": \"Home\"\n}\n\n{{ .title | nosuchfunc }}",
			},
			category: ferrors.CategoryTemplate,
		},
		{
			name: "missing blogpost template",
			files: map[string]string{
				"posts/first.md": "{\n  \"route\": \"post\",\n  \"title\": \"First\",\n  \"date\": \"2024/01/01\",\n  \"excerpt\": \"x\"\n}\n\nbody",
			},
			category: ferrors.CategoryTemplate,
		},
		{
			name: "output collision",
			files: map[string]string{
				"pages/index.html": "{\n  \"route\": \"home\",\n  \"title\": \"A\"\n}\n\nA",
				"pages/home.html":  "{\n  \"route\": \"home\",\n  \"title\": \"B\"\n}\n\nB",
			},
			category: ferrors.CategoryConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			cfg := newSite(t, root, siteConfig, tt.files)

			report, err := New(cfg).Run(t.Context())
			require.Error(t, err)
			assert.Equal(t, tt.category, ferrors.GetCategory(err), err.Error())
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, StageErrorFatal, se.Kind)
			assert.Equal(t, OutcomeFailed, report.Outcome)
			assert.Zero(t, report.StageCounts[StagePersist].Success)

			helpers.NewFileAssertions(t, root).AssertNotExists("public")
		})
	}
}

func TestRun_CollectsContentErrors(t *testing.T) {
	files := map[string]string{
		"templates/post.html": "{{ .content }}",
		"posts/a.md":          "{\n  \"route\": \"post\",\n  \"title\": \"A\"\n}\n\nA",
		"posts/b.md":          "{\n  \"route\": \"post\",\n  \"title\": \"B\",\n  \"date\": \"not a date\"\n}\n\nB",
		"posts/c.md":          "{\n  \"route\": \"post\",\n  \"title\": \"C\",\n  \"date\": \"2024/01/01\",\n  \"excerpt\": \"ok\"\n}\n\nC",
	}

	t.Run("first error aborts", func(t *testing.T) {
		root := t.TempDir()
		cfg := newSite(t, root, siteConfig, files)

		_, err := New(cfg).Run(t.Context())
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "invalid source files")
	})

	t.Run("collect mode reports every file", func(t *testing.T) {
		root := t.TempDir()
		cfg := newSite(t, root, siteConfig, files)
		cfg.Build.CollectContentErrors = true

		report, err := New(cfg).Run(t.Context())
		require.Error(t, err)
		assert.Equal(t, ferrors.CategoryContent, ferrors.GetCategory(err))
		assert.Contains(t, err.Error(), "2 invalid source files")
		assert.Contains(t, err.Error(), "posts/a.md")
		assert.Contains(t, err.Error(), "posts/b.md")
		assert.ErrorIs(t, err, content.ErrMissingDate)
		assert.ErrorIs(t, err, content.ErrInvalidDate)
		assert.Equal(t, StageErrorFatal, report.StageErrorKinds[StageLoadSources])
		helpers.NewFileAssertions(t, root).AssertNotExists("public")
	})
}

func TestRun_SkipsOutputInsideSource(t *testing.T) {
	root := t.TempDir()
	cfgText := `
source_dir: site
output_dir: site/public
site_url: https://example.org
sources:
  "**/*.css": static
routes:
  home: /
`
	cfg := newSite(t, root, cfgText, map[string]string{
		"a.css":          "a",
		"public/old.css": "old",
	})

	report, err := New(cfg).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.AssetsCopied)
	helpers.NewFileAssertions(t, cfg.OutputDir).AssertFileEquals("a.css", "a")
}

func TestRun_RecordsRevision(t *testing.T) {
	_, w, root := helpers.SetupTestGitRepo(t)
	hash := helpers.CommitFile(t, w, root, "README.md", "readme")
	files := siteFiles()
	files["pages/about.html"] = "{\n  \"route\": \"about\",\n  \"title\": \"About\"\n}\n\n{{ .site_revision }}"
	cfg := newSite(t, root, siteConfig, files)

	report, err := New(cfg).Run(t.Context())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(report.Revision, hash[:12]), report.Revision)
	helpers.NewFileAssertions(t, cfg.OutputDir).AssertFileEquals("about/index.html", report.Revision)
}

func TestRun_Canceled(t *testing.T) {
	root := t.TempDir()
	cfg := newSite(t, root, siteConfig, siteFiles())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report, err := New(cfg).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorCanceled, se.Kind)
	assert.Equal(t, StageLoadSources, se.Stage)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
	helpers.NewFileAssertions(t, root).AssertNotExists("public")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	results  map[string]metrics.ResultLabel
	outcomes []metrics.BuildOutcomeLabel
	files    map[string]int
}

func (r *recordingRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[stage] = result
}

func (r *recordingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingRecorder) AddFilesWritten(mode string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[mode] += n
}

func TestRun_ReportsMetrics(t *testing.T) {
	root := t.TempDir()
	cfg := newSite(t, root, siteConfig, siteFiles())
	rec := &recordingRecorder{results: map[string]metrics.ResultLabel{}, files: map[string]int{}}

	_, err := New(cfg, WithRecorder(rec)).Run(t.Context())
	require.NoError(t, err)
	assert.Len(t, rec.results, len(defaultStages()))
	assert.Equal(t, metrics.ResultSuccess, rec.results[string(StagePersist)])
	assert.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)
	assert.Equal(t, map[string]int{"copied": 1, "rendered": 7}, rec.files)
}

func TestRunStages_WarningsContinue(t *testing.T) {
	cfg := &config.Config{}
	st := newState(cfg, testLogger(), metrics.NoopRecorder{}, newReport(""))
	var ran []StageName
	stages := []StageDef{
		{"first", func(context.Context, *State) error {
			ran = append(ran, "first")
			return &StageError{Kind: StageErrorWarning, Stage: "first", Err: errors.New("soft")}
		}},
		{"second", func(context.Context, *State) error {
			ran = append(ran, "second")
			return errors.New("hard")
		}},
		{"third", func(context.Context, *State) error {
			ran = append(ran, "third")
			return nil
		}},
	}

	err := runStages(t.Context(), st, stages)
	require.Error(t, err)
	assert.Equal(t, []StageName{"first", "second"}, ran)
	assert.Len(t, st.Report.Warnings, 1)
	assert.Len(t, st.Report.Errors, 1)
	assert.Equal(t, StageErrorFatal, st.Report.StageErrorKinds["second"])

	st.Report.finish()
	assert.Equal(t, OutcomeFailed, st.Report.Outcome)
	assert.Less(t, st.Report.Duration(), time.Minute)
}

func TestReport_JSON(t *testing.T) {
	r := newReport("abc")
	r.StageDurations[StageRender] = 1500 * time.Microsecond
	r.recordStage(StageRender, nil)
	r.recordStage(StagePersist, newFatalStageError(StagePersist, errors.New("disk full")))
	r.finish()

	s := r.Serializable()
	assert.InDelta(t, 1.5, s.StageDurations["render"], 0.001)
	assert.Equal(t, "fatal", s.StageErrorKinds["persist"])
	assert.Equal(t, []string{"fatal stage persist: disk full"}, s.Errors)
	assert.Equal(t, OutcomeFailed, s.Outcome)

	b, err := r.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"config_hash": "abc"`)
}
