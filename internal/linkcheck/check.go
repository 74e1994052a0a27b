package linkcheck

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Broken is an internal link without a target file.
type Broken struct {
	Page   string // slash path of the page relative to the output root
	Target string
	Tag    string
	Line   int
}

func (b Broken) String() string {
	return fmt.Sprintf("%s: <%s> %s (element %d)", b.Page, b.Tag, b.Target, b.Line)
}

// Result summarizes a check run.
type Result struct {
	Pages   int
	Links   int
	Checked int
	Broken  []Broken
}

// Checker checks the HTML files of an output tree.
type Checker struct {
	fsys    fs.FS
	siteURL string
	workers int
}

// NewChecker checks the tree rooted at root. Absolute links to siteURL's
// host are checked like relative ones.
func NewChecker(root, siteURL string, workers int) *Checker {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Checker{fsys: os.DirFS(root), siteURL: siteURL, workers: workers}
}

// Run checks every page. Broken links are sorted by page, then element order.
func (c *Checker) Run(ctx context.Context) (Result, error) {
	pages, err := doublestar.Glob(c.fsys, "**/*.html", doublestar.WithFilesOnly())
	if err != nil {
		return Result{}, fmt.Errorf("list pages: %w", err)
	}
	sort.Strings(pages)

	var (
		mu  sync.Mutex
		res = Result{Pages: len(pages)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			links, broken, checked, err := c.checkPage(page)
			if err != nil {
				return err
			}
			mu.Lock()
			res.Links += links
			res.Checked += checked
			res.Broken = append(res.Broken, broken...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	sort.SliceStable(res.Broken, func(i, j int) bool {
		if res.Broken[i].Page != res.Broken[j].Page {
			return res.Broken[i].Page < res.Broken[j].Page
		}
		return res.Broken[i].Line < res.Broken[j].Line
	})
	return res, nil
}

func (c *Checker) checkPage(page string) (links int, broken []Broken, checked int, err error) {
	f, err := c.fsys.Open(page)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("open %s: %w", page, err)
	}
	defer func() { _ = f.Close() }()

	found, err := Extract(f, c.siteURL)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("%s: %w", page, err)
	}
	for _, l := range found {
		if !l.Internal {
			continue
		}
		checked++
		if !c.exists(resolve(page, l.URL)) {
			broken = append(broken, Broken{Page: page, Target: l.URL, Tag: l.Tag, Line: l.Line})
		}
	}
	return len(found), broken, checked, nil
}

// resolve maps a link on page to a slash path relative to the output root.
func resolve(page, target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	p := u.Path
	if p == "" {
		return page
	}
	if !strings.HasPrefix(p, "/") {
		p = path.Join(path.Dir("/"+page), p)
	}
	p = strings.TrimPrefix(path.Clean(p), "/")
	if strings.HasSuffix(u.Path, "/") && p != "" {
		p += "/"
	}
	return p
}

// exists reports whether rel names a file, or a directory holding index.html.
func (c *Checker) exists(rel string) bool {
	name := strings.TrimSuffix(rel, "/")
	if name == "" {
		name = "."
	}
	info, err := fs.Stat(c.fsys, name)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	_, err = fs.Stat(c.fsys, path.Join(name, "index.html"))
	return err == nil
}
