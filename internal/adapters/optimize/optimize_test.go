package optimize_test

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/flaskblog/assetflow/internal/adapters/optimize"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinifier_CSS(t *testing.T) {
	out, err := optimize.NewMinifier().CSS([]byte("body {\n  margin: 0px;\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, "body{margin:0}", string(out))
}

func TestMinifier_HTML(t *testing.T) {
	src := `<!doctype html>
<html>
  <head>
    <!--[if lt IE 9]><script src="/static/scripts/html5shiv.js"></script><![endif]-->
    <!-- regular comment -->
    <title>{{ title }}</title>
  </head>
  <body>
    <p   class="lead">  hello  </p>
  </body>
</html>`
	out, err := optimize.NewMinifier().HTML([]byte(src))
	require.NoError(t, err)
	got := string(out)
	assert.Contains(t, got, "<!--[if lt IE 9]>")
	assert.Contains(t, got, "<![endif]-->")
	assert.NotContains(t, got, "regular comment")
	assert.Contains(t, got, "{{ title }}")
	assert.Contains(t, got, `class="lead"`)
	assert.Less(t, len(got), len(src))
}

func TestMinifier_HTMLKeepsJinja(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "LoopInSelect",
			src:  `<select name="o">{% for o in opts %}<option value="{{o}}">{{o}}</option>{% endfor %}</select>`,
			want: []string{"{% for o in opts %}", `value="{{o}}"`, "{% endfor %}</select>"},
		},
		{
			name: "LoopInTable",
			src:  "<table>\n  {% for row in rows %}\n  <tr><td>{{ row.name }}</td></tr>\n  {% endfor %}\n</table>",
			want: []string{"{% for row in rows %}", "{{ row.name }}", "{% endfor %}"},
		},
		{
			name: "CriticalPlaceholder",
			src:  "<head>\n  {# inject_critical:index.css: #}\n  <title>Blog</title>\n</head>",
			want: []string{"{# inject_critical:index.css: #}"},
		},
		{
			name: "BlockSpansLines",
			src:  "<ul>{% if posts\n   and user %}<li>{{ posts|length }}</li>{% endif %}</ul>",
			want: []string{"{% if posts\n   and user %}", "{{ posts|length }}", "{% endif %}"},
		},
	}
	m := optimize.NewMinifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.HTML([]byte(tt.src))
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, string(out), w)
			}
			assert.NotContains(t, string(out), "{{@")
		})
	}
}

func TestMinifier_SVGKeepsIDs(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
  <defs>
    <linearGradient id="fade"><stop offset="0"/></linearGradient>
  </defs>
  <g id="logo">
    <rect id="background" width="10" height="10" fill="url(#fade)"/>
  </g>
</svg>`
	out, err := optimize.NewMinifier().SVG([]byte(src))
	require.NoError(t, err)
	for _, id := range []string{"fade", "logo", "background"} {
		assert.Contains(t, string(out), `id="`+id+`"`)
	}
}

func TestMinifier_JS(t *testing.T) {
	m := optimize.NewMinifier()

	out, err := m.JS([]byte("function add(first, second) {\n  return first + second;\n}\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "function add(")
	assert.NotContains(t, string(out), "second")

	_, err = m.JS([]byte("function ( {"))
	assert.ErrorContains(t, err, domain.ErrMinifyFailed.Error())
}

func TestPrefixer_Prefix(t *testing.T) {
	out, err := optimize.NewPrefixer().Prefix([]byte(".nav {\n  user-select: none;\n}\n"), []string{"safari14"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "-webkit-user-select: none")
	assert.Contains(t, string(out), "user-select: none")
}

func TestParseEngines(t *testing.T) {
	engines, err := optimize.ParseEngines([]string{"chrome130", "ios17.2", "Firefox132"})
	require.NoError(t, err)
	assert.Equal(t, []api.Engine{
		{Name: api.EngineChrome, Version: "130"},
		{Name: api.EngineIOS, Version: "17.2"},
		{Name: api.EngineFirefox, Version: "132"},
	}, engines)

	for _, bad := range []string{"chrome", "130", "netscape4"} {
		_, err := optimize.ParseEngines([]string{bad})
		assert.ErrorContains(t, err, domain.ErrInvalidConfig.Error(), bad)
	}
}
