package domain_test

import (
	"errors"
	"testing"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectCritical_FirstPlaceholderOnly(t *testing.T) {
	text := "<head>{# inject_critical:index.css: #}</head><body>{#inject_critical:post.css:#}</body>"

	var asked []string
	out, ok, err := domain.InjectCritical(text, func(name string) (string, error) {
		asked = append(asked, name)
		return "h1{color:red}", nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"index.css"}, asked)
	assert.Equal(t, "<head><style>h1{color:red}</style></head><body>{#inject_critical:post.css:#}</body>", out)
}

func TestInjectCritical_NoPlaceholder(t *testing.T) {
	out, ok, err := domain.InjectCritical("<p>plain</p>", func(string) (string, error) {
		t.Fatal("lookup must not be called")
		return "", nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "<p>plain</p>", out)
}

func TestInjectCritical_LookupError(t *testing.T) {
	boom := errors.New("missing artifact")
	out, ok, err := domain.InjectCritical("{# inject_critical:x.css: #}", func(string) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)
	assert.Equal(t, "{# inject_critical:x.css: #}", out)
}

func TestFindPlaceholder(t *testing.T) {
	name, start, end, ok := domain.FindPlaceholder("ab{#   inject_critical:home.css:   #}cd")
	require.True(t, ok)
	assert.Equal(t, "home.css", name)
	assert.Equal(t, 2, start)
	assert.Equal(t, len("ab{#   inject_critical:home.css:   #}"), end)
}

func TestJobDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		job     domain.JobDescriptor
		wantErr bool
	}{
		{name: "Valid", job: domain.JobDescriptor{URL: "/", Filename: "index.css"}},
		{name: "EmptyFilename", job: domain.JobDescriptor{URL: "/"}, wantErr: true},
		{name: "Traversal", job: domain.JobDescriptor{URL: "/", Filename: "../x.css"}, wantErr: true},
		{name: "Nested", job: domain.JobDescriptor{URL: "/", Filename: "a/b.css"}, wantErr: true},
		{name: "Dot", job: domain.JobDescriptor{URL: "/", Filename: ".."}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				assert.ErrorContains(t, err, domain.ErrInvalidJob.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}

	job := domain.JobDescriptor{URL: "/posts/1", Filename: "post.css"}
	assert.Equal(t, "http://localhost:5007/posts/1", job.PageURL("http://localhost:5007/"))
}
