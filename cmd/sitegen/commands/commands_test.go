package commands

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	helpers "git.home.luguber.info/inful/sitegen/internal/testutil/testutils"
)

const testConfig = `
source_dir: site
output_dir: public
sitename: Example
site_url: https://example.org/
blogpost_template: post.html
sources:
  "templates/*.html": template
  "pages/*.html": page
  "posts/*.md": blogpost
routes:
  home: /
  post: /blog/{slug}
history:
  path: runs.db
serve:
  port: 8123
  rebuild_interval: 1m
`

func testSite(index string) map[string]string {
	return map[string]string{
		"sitegen.yaml":             testConfig,
		"site/templates/post.html": `<h1>{{ .title }}</h1>{{ .content }}`,
		"site/pages/index.html":    "{\n  \"route\": \"home\",\n  \"title\": \"Home\"\n}\n\n" + index,
		"site/posts/hello.md":      "{\n  \"route\": \"post\",\n  \"title\": \"Hello\",\n  \"date\": \"2024/05/01\",\n  \"excerpt\": \"hi\"\n}\n\nHello *there*\n",
	}
}

// chdirSite writes the site tree into a temp dir and makes it the working directory.
func chdirSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	helpers.WriteTree(t, root, files)
	t.Chdir(root)
	return root
}

func testGlobal() (*Global, *bytes.Buffer) {
	var out bytes.Buffer
	return &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Out: &out}, &out
}

func exitCode(err error) int {
	return ferrors.NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil))).ExitCodeFor(err)
}

func TestBuild_WritesSiteAndRecordsHistory(t *testing.T) {
	root := chdirSite(t, testSite(`{{ range blogposts_all 5 }}<a href="{{ .URL }}">{{ .Title }}</a>{{ end }}`))
	cli := &CLI{Config: "sitegen.yaml"}

	g, out := testGlobal()
	require.NoError(t, (&BuildCmd{}).Run(g, cli))
	assert.Contains(t, out.String(), "outcome=success")

	helpers.NewFileAssertions(t, filepath.Join(root, "public")).
		AssertFileEquals("index.html", `<a href="/blog/hello">Hello</a>`).
		AssertFileContains("blog/hello/index.html", "<h1>Hello</h1><p>Hello <em>there</em></p>")

	g, out = testGlobal()
	require.NoError(t, (&HistoryCmd{Limit: 10}).Run(g, cli))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "RUN"))
	assert.Contains(t, lines[1], "success")
	runID := strings.Fields(lines[1])[0]

	g, out = testGlobal()
	require.NoError(t, (&HistoryCmd{RunID: runID}).Run(g, cli))
	assert.Contains(t, out.String(), `"run_id": "`+runID+`"`)
	assert.Contains(t, out.String(), `"pages_rendered": 2`)
}

func TestBuild_FailedRunIsRecordedAndMapped(t *testing.T) {
	files := testSite("home")
	files["site/posts/hello.md"] = "{\n  \"route\": \"post\",\n  \"title\": \"Hello\",\n  \"excerpt\": \"hi\"\n}\n\nbody\n"
	root := chdirSite(t, files)
	cli := &CLI{Config: "sitegen.yaml"}

	g, out := testGlobal()
	err := (&BuildCmd{}).Run(g, cli)
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitContent, exitCode(err))
	assert.Contains(t, out.String(), "outcome=failed")
	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	runID, ok := classified.Context().GetString("run_id")
	require.True(t, ok)
	assert.Contains(t, out.String(), "run="+runID)
	assert.NoDirExists(t, filepath.Join(root, "public"))

	g, out = testGlobal()
	require.NoError(t, (&HistoryCmd{Limit: 1}).Run(g, cli))
	assert.Contains(t, out.String(), "failed")
}

func TestBuild_MissingConfigIsConfigError(t *testing.T) {
	chdirSite(t, map[string]string{})
	g, _ := testGlobal()
	err := (&BuildCmd{}).Run(g, &CLI{Config: "sitegen.yaml"})
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitConfig, exitCode(err))
}

func TestBuildCmd_FlagsOverrideConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Build.Workers = 8
	(&BuildCmd{CollectErrors: true, Workers: 2, Clean: true}).apply(cfg)
	assert.True(t, cfg.Build.CollectContentErrors)
	assert.Equal(t, 2, cfg.Build.Workers)
	assert.True(t, cfg.Build.CleanOutput)

	cfg = &config.Config{}
	cfg.Build.Workers = 8
	(&BuildCmd{}).apply(cfg)
	assert.Equal(t, 8, cfg.Build.Workers)
	assert.False(t, cfg.Build.CleanOutput)
}

func TestCheck_ReportsBrokenLinks(t *testing.T) {
	chdirSite(t, testSite(`<a href="/blog/hello">ok</a><a href="/missing">gone</a>`))
	cli := &CLI{Config: "sitegen.yaml"}

	g, _ := testGlobal()
	require.NoError(t, (&BuildCmd{}).Run(g, cli))

	g, out := testGlobal()
	err := (&CheckCmd{Workers: 2}).Run(g, cli)
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitContent, exitCode(err))
	assert.Contains(t, out.String(), "index.html: <a> /missing")
	assert.Contains(t, out.String(), "1 broken")
}

func TestCheck_CleanSite(t *testing.T) {
	chdirSite(t, testSite(`<a href="/blog/hello">ok</a>`))
	cli := &CLI{Config: "sitegen.yaml"}

	g, _ := testGlobal()
	require.NoError(t, (&BuildCmd{}).Run(g, cli))

	g, out := testGlobal()
	require.NoError(t, (&CheckCmd{}).Run(g, cli))
	assert.Contains(t, out.String(), "0 broken")
}

func TestHistory_RequiresPath(t *testing.T) {
	chdirSite(t, map[string]string{
		"sitegen.yaml":          strings.Replace(testConfig, "history:\n  path: runs.db\n", "", 1),
		"site/pages/index.html": "{\"route\": \"home\"}\n\nhome",
	})
	g, _ := testGlobal()
	err := (&HistoryCmd{Limit: 10}).Run(g, &CLI{Config: "sitegen.yaml"})
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitConfig, exitCode(err))
}

func TestHistory_UnknownRun(t *testing.T) {
	chdirSite(t, testSite("home"))
	g, _ := testGlobal()
	err := (&HistoryCmd{RunID: "nope"}).Run(g, &CLI{Config: "sitegen.yaml"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	root := chdirSite(t, map[string]string{})
	cli := &CLI{Config: filepath.Join(root, "sitegen.yaml")}

	g, out := testGlobal()
	require.NoError(t, (&InitCmd{}).Run(g, cli))
	assert.Contains(t, out.String(), "Wrote starter configuration")
	assert.FileExists(t, cli.Config)

	err := (&InitCmd{}).Run(g, cli)
	require.Error(t, err)
	assert.Equal(t, ferrors.ExitConfig, exitCode(err))

	require.NoError(t, (&InitCmd{Force: true}).Run(g, cli))
}

func TestServeCmd_Options(t *testing.T) {
	chdirSite(t, testSite("home"))
	cfg, err := loadConfig("sitegen.yaml")
	require.NoError(t, err)
	g, _ := testGlobal()

	opts := (&ServeCmd{}).options(g, cfg)
	assert.Equal(t, "127.0.0.1:8123", opts.Addr)
	assert.Equal(t, time.Minute, opts.RebuildInterval)
	assert.Equal(t, cfg.Serve.LiveReload, opts.LiveReload)
	assert.NotNil(t, opts.Metrics)
	assert.NotNil(t, opts.Build)

	opts = (&ServeCmd{Port: 9000, NoLiveReload: true, RebuildInterval: time.Second}).options(g, cfg)
	assert.Equal(t, "127.0.0.1:9000", opts.Addr)
	assert.False(t, opts.LiveReload)
	assert.Equal(t, time.Second, opts.RebuildInterval)
}

func TestCLI_Parse(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	tests := []struct {
		args    []string
		command string
		check   func(t *testing.T, cli *CLI)
	}{
		{
			args:    []string{"build", "--collect-errors", "-w", "3", "--clean"},
			command: "build",
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, BuildCmd{CollectErrors: true, Workers: 3, Clean: true}, cli.Build)
			},
		},
		{
			args:    []string{"-v", "serve", "-p", "9000", "--no-live-reload", "--rebuild-interval", "5m"},
			command: "serve",
			check: func(t *testing.T, cli *CLI) {
				assert.True(t, cli.Verbose)
				assert.Equal(t, ServeCmd{Port: 9000, NoLiveReload: true, RebuildInterval: 5 * time.Minute}, cli.Serve)
			},
		},
		{
			args:    []string{"history", "abc"},
			command: "history <run-id>",
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "abc", cli.History.RunID)
				assert.Equal(t, 10, cli.History.Limit)
			},
		},
		{
			args:    []string{"-c", "other.yaml", "init", "--force"},
			command: "init",
			check: func(t *testing.T, cli *CLI) {
				assert.Equal(t, "other.yaml", filepath.Base(cli.Config))
				assert.True(t, cli.Init.Force)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			var cli CLI
			parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
			require.NoError(t, err)
			ctx, err := parser.Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.command, ctx.Command())
			tt.check(t, &cli)
		})
	}
}

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}
