package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `benefits-portal answers an insured member's questions about their own benefits and claims.

Every answer is scoped to the authenticated member's company. Tools never accept tenant, company or
member identifiers; scoping comes from the session.

Tools:
- ask_question: plain-language question in, formatted answer out (kind scalar, table, empty, text or error).
- list_metrics: the metrics and dimensions questions can refer to.
- quick_stats: deductible progress, out-of-pocket spend and claims by type.

Docs:
- portal://docs/questions (what to ask and how answers are shaped)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "portal://docs/questions",
		Name:        "docs_questions",
		Title:       "Asking questions",
		Description: "Question phrasing that works well and how answers are shaped.",
		Content: `# Asking questions

Ask one thing at a time in plain language:

- "How much of my deductible have I met?"
- "What is my out-of-pocket spend this year?"
- "Show my claims by type."
- "How much did the plan pay by month?"

## Answer kinds

- scalar: one figure, already formatted (currency shown with a dollar sign).
- table: rows with the requested metrics and groupings.
- empty: no data matched; nothing failed.
- text: the assistant needs the question rephrased.
- error: a short sentence; retrying later may help.

Only one question per session is answered at a time. A second concurrent ask returns BUSY.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
