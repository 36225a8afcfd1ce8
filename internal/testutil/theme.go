package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ThemeFiles is the content of a small but complete theme.
var ThemeFiles = map[string]string{
	"package.json": `{
  "name": "starter",
  "version": "1.2.0",
  "description": "A starter theme",
  "engines": {"ghost": ">=5.0.0"},
  "config": {"posts_per_page": 10}
}`,
	"default.hbs": `<!DOCTYPE html>
<html>
<head>
  {{ghost_head}}
  <link rel="stylesheet" href="{{asset "built/screen.css"}}">
</head>
<body class="site">
  {{{body}}}
  {{ghost_foot}}
  <script src="{{asset "built/main.js"}}"></script>
</body>
</html>`,
	"index.hbs": `{{!< default}}
<main class="feed">
  {{#foreach posts}}{{> "post-card"}}{{/foreach}}
</main>`,
	"post.hbs": `{{!< default}}
{{#post}}<article class="post md:flex">{{content}}</article>{{/post}}`,
	"partials/post-card.hbs": `<article class="card">{{title}}</article>`,
	"locales/en.json":        `{"Read more": "Read more"}`,
	"assets/css/screen.css": `@import "./utilities.css";

.site { margin: 0; }
.feed .card { display: grid; }
.unused-block { color: red; }
`,
	"assets/css/utilities.css": `.flex { display: flex; }
.hidden { display: none; }
@media (min-width: 768px) {
  .md\:flex { display: flex; }
  .md\:hidden { display: none; }
}
`,
	"assets/js/01-nav.js":  "window.themeNav = function () { return document.querySelector('.site'); };\n",
	"assets/js/02-feed.js": "window.themeFeed = function () { return document.querySelectorAll('.card').length; };\n",
	"node_modules/dep/index.js": "module.exports = 1;\n",
	"README.md":                 "# starter\n",
}

// WriteTheme writes ThemeFiles into a fresh temp dir and returns its path.
func WriteTheme(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, ThemeFiles)
	return dir
}

// WriteFiles writes files relative to dir, creating parent directories.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}
