package render

import (
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/codemap-dev/codemapd/internal/model"
)

// HTML exports a codemap as a self-contained page: embedded mermaid.js from
// CDN, the rendered diagram, and the trace guide alongside it.
func HTML(cm *model.Codemap) (string, error) {
	if cm == nil {
		return "", errors.New("nil codemap")
	}

	var sections strings.Builder
	ordered := append([]model.TraceSection(nil), cm.TraceGuide.Sections...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	for _, s := range ordered {
		sections.WriteString("<h3>" + html.EscapeString(s.Title) + "</h3>\n")
		sections.WriteString("<div class=\"section-content\">" + markdownToHTML(s.Content) + "</div>\n")
	}

	conclusion := ""
	if cm.TraceGuide.Conclusion != "" {
		conclusion = "<h3>Conclusion</h3><p>" + html.EscapeString(cm.TraceGuide.Conclusion) + "</p>"
	}

	r := strings.NewReplacer(
		"{{TITLE}}", html.EscapeString(cm.Title),
		"{{REPO_URL}}", html.EscapeString(cm.RepoURL),
		"{{GENERATED_AT}}", cm.CreatedAt.Format("2006-01-02 15:04"),
		"{{QUERY}}", html.EscapeString(cm.Query),
		"{{MERMAID}}", cm.Render.Mermaid,
		"{{SUMMARY}}", html.EscapeString(cm.TraceGuide.Summary),
		"{{SECTIONS}}", sections.String(),
		"{{CONCLUSION}}", conclusion,
	)
	return r.Replace(htmlTemplate), nil
}

var (
	mdCodeBlock = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)\\n```")
	mdInline    = regexp.MustCompile("`([^`]+)`")
	mdBold      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic    = regexp.MustCompile(`\*([^*]+)\*`)
)

// markdownToHTML handles the small markdown subset the trace writer emits.
func markdownToHTML(md string) string {
	out := html.EscapeString(md)
	out = mdCodeBlock.ReplaceAllString(out, `<pre><code class="language-$1">$2</code></pre>`)
	out = mdInline.ReplaceAllString(out, "<code>$1</code>")
	out = mdBold.ReplaceAllString(out, "<strong>$1</strong>")
	out = mdItalic.ReplaceAllString(out, "<em>$1</em>")
	out = strings.ReplaceAll(out, "\n\n", "</p><p>")
	return "<p>" + out + "</p>"
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{TITLE}}</title>
    <script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
    <style>
        :root {
            --bg-primary: #ffffff;
            --bg-secondary: #f5f5f5;
            --text-primary: #1a1a1a;
            --text-secondary: #666666;
            --accent: #3b82f6;
            --border: #e5e5e5;
        }
        @media (prefers-color-scheme: dark) {
            :root {
                --bg-primary: #1a1a1a;
                --bg-secondary: #2d2d2d;
                --text-primary: #ffffff;
                --text-secondary: #a0a0a0;
                --accent: #60a5fa;
                --border: #404040;
            }
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
        }
        .container { max-width: 1400px; margin: 0 auto; padding: 2rem; }
        header { border-bottom: 1px solid var(--border); padding-bottom: 1rem; margin-bottom: 2rem; }
        h1 { font-size: 1.75rem; font-weight: 600; margin-bottom: 0.5rem; }
        .meta { color: var(--text-secondary); font-size: 0.875rem; }
        .layout { display: grid; grid-template-columns: 1fr 400px; gap: 2rem; }
        @media (max-width: 1024px) { .layout { grid-template-columns: 1fr; } }
        .diagram-container {
            background: var(--bg-secondary);
            border-radius: 8px;
            padding: 1rem;
            overflow: auto;
            min-height: 400px;
        }
        .mermaid { display: flex; justify-content: center; }
        .trace-guide {
            background: var(--bg-secondary);
            border-radius: 8px;
            padding: 1.5rem;
            max-height: 80vh;
            overflow-y: auto;
        }
        .trace-guide h2 { font-size: 1.25rem; margin-bottom: 1rem; padding-bottom: 0.5rem; border-bottom: 1px solid var(--border); }
        .trace-guide h3 { font-size: 1rem; margin-top: 1.5rem; margin-bottom: 0.5rem; color: var(--accent); }
        .trace-guide p { margin-bottom: 1rem; color: var(--text-secondary); }
        .trace-guide code { background: var(--bg-primary); padding: 0.125rem 0.375rem; border-radius: 4px; font-size: 0.875rem; }
        .trace-guide pre { background: var(--bg-primary); padding: 1rem; border-radius: 4px; overflow-x: auto; margin: 1rem 0; }
        .summary { background: var(--accent); color: white; padding: 1rem; border-radius: 8px; margin-bottom: 1rem; }
        footer {
            margin-top: 2rem;
            padding-top: 1rem;
            border-top: 1px solid var(--border);
            text-align: center;
            color: var(--text-secondary);
            font-size: 0.75rem;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{TITLE}}</h1>
            <p class="meta">
                Repository: {{REPO_URL}} |
                Generated: {{GENERATED_AT}} |
                Query: "{{QUERY}}"
            </p>
        </header>
        <div class="layout">
            <div class="diagram-container">
                <div class="mermaid">
{{MERMAID}}
                </div>
            </div>
            <div class="trace-guide">
                <h2>Trace Guide</h2>
                <div class="summary">
                    <p>{{SUMMARY}}</p>
                </div>
                {{SECTIONS}}
                {{CONCLUSION}}
            </div>
        </div>
        <footer>
            <a href="{{REPO_URL}}" target="_blank">View Repository</a>
        </footer>
    </div>
    <script>
        mermaid.initialize({
            startOnLoad: true,
            theme: window.matchMedia('(prefers-color-scheme: dark)').matches ? 'dark' : 'default',
            flowchart: { useMaxWidth: true, htmlLabels: true, curve: 'basis' },
            securityLevel: 'loose'
        });
    </script>
</body>
</html>`
