package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher 依 URL 返回預設頁面
type fakeFetcher struct {
	pages map[string]string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, common.ErrNetwork.Wrap(&StatusError{URL: url, StatusCode: 404})
	}
	return &Page{URL: url, StatusCode: 200, HTML: html}, nil
}

// recordingCompleter 記錄收到的 prompt
type recordingCompleter struct {
	response string
	err      error
	calls    atomic.Int32
	prompts  []string
}

func (c *recordingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	c.prompts = append(c.prompts, prompt)
	return c.response, c.err
}

func (c *recordingCompleter) Name() string { return "recording" }

const pastaResponse = `{"title":"Pasta","ingredients":[{"name":"pasta"},{"name":"sauce"}],
	"steps":[{"order":1,"instruction":"Boil pasta for 10 minutes"},{"order":2,"instruction":"Add sauce"}],"cookingTime":10}`

func newTestService(t *testing.T, pages map[string]string, completer provider.Completer) *ImportService {
	t.Helper()
	svc, err := NewImportService(&fakeFetcher{pages: pages}, completer, 0)
	require.NoError(t, err)
	return svc
}

func TestNewImportService_RequiresDependencies(t *testing.T) {
	_, err := NewImportService(nil, &recordingCompleter{}, 0)
	assert.Error(t, err)
	_, err = NewImportService(&fakeFetcher{}, nil, 0)
	assert.Error(t, err)
}

func TestImport_Text(t *testing.T) {
	completer := &recordingCompleter{response: "```json\n" + pastaResponse + "\n```"}
	svc := newTestService(t, nil, completer)

	recipe, err := svc.Import(context.Background(), "Boil pasta for 10 minutes, add sauce.")
	require.NoError(t, err)

	assert.Equal(t, common.SourceText, recipe.SourceType)
	assert.Equal(t, "", recipe.SourceURL)
	assert.NotEmpty(t, recipe.Steps)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "Boil pasta for 10 minutes, add sauce.")
}

func TestImport_TextFailure(t *testing.T) {
	svc := newTestService(t, nil, &recordingCompleter{response: "no recipe here"})

	recipe, err := svc.Import(context.Background(), "random words")
	assert.Nil(t, recipe)

	importErr := AsImportError(err)
	require.NotNil(t, importErr)
	assert.Equal(t, StageAIExtraction, importErr.Stage)
	assert.Equal(t, common.SourceText, importErr.Source)
	assert.True(t, errors.Is(err, common.ErrParse))
}

func TestImport_EmptyInput(t *testing.T) {
	svc := newTestService(t, nil, &recordingCompleter{})

	_, err := svc.Import(context.Background(), "  \n ")
	assert.True(t, errors.Is(err, common.ErrUnsupportedInput))
}

func TestImport_WebStructuredData(t *testing.T) {
	url := "https://cooking.example.com/bread"
	completer := &recordingCompleter{response: pastaResponse}
	svc := newTestService(t, map[string]string{
		url: ldPage(`{"@type":"Recipe","name":"Bread","recipeIngredient":["2 cups flour"],"recipeInstructions":["Mix well"]}`),
	}, completer)

	recipe, err := svc.Import(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Bread", recipe.Title)
	assert.Equal(t, url, recipe.SourceURL)
	assert.Equal(t, common.SourceWeb, recipe.SourceType)
	assert.Equal(t, int32(0), completer.calls.Load())
}

func TestImport_WebFallsBackToAI(t *testing.T) {
	url := "https://blog.example.com/pasta"
	page := `<html><head><title>My Pasta</title>
		<meta property="og:image" content="https://blog.example.com/pasta.jpg">
		<script>var tracking = true;</script></head>
		<body><nav>Home</nav><p>Boil pasta for 10 minutes, then add sauce.</p></body></html>`
	completer := &recordingCompleter{response: pastaResponse}
	svc := newTestService(t, map[string]string{url: page}, completer)

	recipe, err := svc.Import(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Pasta", recipe.Title)
	assert.Equal(t, common.SourceWeb, recipe.SourceType)
	assert.Equal(t, url, recipe.SourceURL)
	assert.Equal(t, "https://blog.example.com/pasta.jpg", recipe.ImageURL)

	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], "Boil pasta for 10 minutes, then add sauce.")
	assert.NotContains(t, completer.prompts[0], "tracking")
}

func TestImport_WebAIFailure(t *testing.T) {
	url := "https://blog.example.com/notes"
	svc := newTestService(t, map[string]string{
		url: "<html><body><p>Just some notes about my day.</p></body></html>",
	}, &recordingCompleter{response: `{"description":"no title"}`})

	_, err := svc.Import(context.Background(), url)
	importErr := AsImportError(err)
	require.NotNil(t, importErr)
	assert.Equal(t, StageAIExtraction, importErr.Stage)
	assert.Equal(t, common.SourceWeb, importErr.Source)
	assert.True(t, errors.Is(err, common.ErrSchema))
}

func TestImport_WebWithoutText(t *testing.T) {
	url := "https://blog.example.com/empty"
	completer := &recordingCompleter{response: pastaResponse}
	svc := newTestService(t, map[string]string{url: "<html><body></body></html>"}, completer)

	_, err := svc.Import(context.Background(), url)
	importErr := AsImportError(err)
	require.NotNil(t, importErr)
	assert.Equal(t, StagePageText, importErr.Stage)
	assert.True(t, errors.Is(err, common.ErrImportFailed))
	assert.Equal(t, int32(0), completer.calls.Load())
}

func TestImport_FetchFailure(t *testing.T) {
	svc := newTestService(t, map[string]string{}, &recordingCompleter{response: pastaResponse})

	recipe, err := svc.Import(context.Background(), "https://www.youtube.com/watch?v=missing")
	assert.Nil(t, recipe)

	importErr := AsImportError(err)
	require.NotNil(t, importErr)
	assert.Equal(t, StageFetch, importErr.Stage)
	assert.Equal(t, common.SourceYouTube, importErr.Source)
	assert.True(t, errors.Is(err, common.ErrNetwork))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 404, statusErr.StatusCode)
}

func videoPage(title, description string) string {
	var sb strings.Builder
	sb.WriteString("<html><head>")
	if title != "" {
		sb.WriteString(`<meta property="og:title" content="` + title + `">`)
	}
	if description != "" {
		sb.WriteString(`<meta property="og:description" content="` + description + `">`)
	}
	sb.WriteString("</head><body></body></html>")
	return sb.String()
}

func TestImport_VideoWithDescription(t *testing.T) {
	url := "https://youtu.be/abc"
	completer := &recordingCompleter{response: pastaResponse}
	svc := newTestService(t, map[string]string{
		url: videoPage("Pasta video", "Boil pasta for 10 minutes and add sauce"),
	}, completer)

	recipe, err := svc.Import(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "Pasta", recipe.Title)
	assert.Equal(t, common.SourceYouTube, recipe.SourceType)
	assert.Equal(t, url, recipe.SourceURL)
	require.Len(t, completer.prompts, 1)
	assert.True(t, strings.HasSuffix(completer.prompts[0], "Boil pasta for 10 minutes and add sauce"))
}

func TestImport_VideoMinimalRecord(t *testing.T) {
	t.Run("no description skips AI", func(t *testing.T) {
		url := "https://www.tiktok.com/@chef/video/1"
		completer := &recordingCompleter{response: pastaResponse}
		svc := newTestService(t, map[string]string{url: videoPage("", "")}, completer)

		recipe, err := svc.Import(context.Background(), url)
		require.NoError(t, err)

		assert.Equal(t, common.DefaultRecipeTitle, recipe.Title)
		assert.Equal(t, common.SourceTikTok, recipe.SourceType)
		assert.Equal(t, url, recipe.SourceURL)
		assert.Empty(t, recipe.Ingredients)
		assert.NotNil(t, recipe.Ingredients)
		assert.NotNil(t, recipe.Steps)
		assert.Equal(t, int32(0), completer.calls.Load())
	})

	t.Run("AI failure keeps meta", func(t *testing.T) {
		url := "https://www.youtube.com/watch?v=xyz"
		svc := newTestService(t, map[string]string{
			url: videoPage("Quick snack", "Just vibes"),
		}, &recordingCompleter{err: errors.New("model overloaded")})

		recipe, err := svc.Import(context.Background(), url)
		require.NoError(t, err)

		assert.Equal(t, "Quick snack", recipe.Title)
		assert.Equal(t, "Just vibes", recipe.Description)
		assert.Equal(t, common.SourceYouTube, recipe.SourceType)
		assert.Empty(t, recipe.Steps)
	})
}

func TestImport_ResultRoundTrip(t *testing.T) {
	url := "https://cooking.example.com/lasagna"
	svc := newTestService(t, map[string]string{
		url: ldPage(`{"@type":"Recipe","name":"Lasagna","recipeIngredient":["pasta"],
			"recipeInstructions":["Layer","Bake"],"totalTime":"PT1H","recipeYield":"8"}`),
	}, &recordingCompleter{})

	recipe, err := svc.Import(context.Background(), url)
	require.NoError(t, err)

	data, err := json.Marshal(recipe)
	require.NoError(t, err)

	var decoded common.ImportedRecipe
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *recipe, decoded)
}
