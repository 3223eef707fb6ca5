package notiontest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notiongate/notiongate/internal/notion"
)

func TestServerServesPagesAndBlocks(t *testing.T) {
	srv := New(t)
	srv.AddPage("p1", "Hello", notion.Block{Object: "block", ID: "b1", Type: "paragraph"})
	client := srv.Client()

	page, err := client.RetrievePage(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", page.Text("Name"))

	blocks, err := client.BlockChildren(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "b1", blocks[0].ID)

	_, err = client.RetrievePage(context.Background(), "missing")
	var apiErr *notion.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, 3, srv.Requests())
}

func TestServerEvaluatesQueryFilters(t *testing.T) {
	srv := New(t)
	client := srv.Client()
	ctx := context.Background()

	_, err := client.CreatePage(ctx, "db", map[string]notion.PropertyValue{"Email": notion.Email("a@example.com")})
	require.NoError(t, err)
	_, err = client.CreatePage(ctx, "db", map[string]notion.PropertyValue{"Email": notion.Email("b@example.com")})
	require.NoError(t, err)

	filter := notion.Filter{Property: "Email", Email: &notion.TextCondition{Equals: "b@example.com"}}
	pages, err := client.QueryDatabase(ctx, "db", &filter)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "b@example.com", pages[0].EmailValue("Email"))

	srv.SetFail(true)
	_, err = client.QueryDatabase(ctx, "db", nil)
	require.Error(t, err)
}
