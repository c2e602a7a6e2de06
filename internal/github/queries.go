package github

import "github.com/shurcooL/githubv4"

// RepositoriesQuery is the GraphQL query for listing organization
// repositories when the GraphQL repository source is selected.
type RepositoriesQuery struct {
	Organization struct {
		Repositories struct {
			Nodes    []Repository
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
		} `graphql:"repositories(first: 100, after: $cursor)"`
	} `graphql:"organization(login: $org)"`
}

// Repository identifies an organization repository. The same type decodes
// REST listings (json tags) and GraphQL nodes (field names).
type Repository struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	IsArchived bool `json:"archived"`
}
