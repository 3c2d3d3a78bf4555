package chat

// Response is a grounded answer plus the provenance of the chunks the
// synthesis step was given. Query is the search query that actually drove
// retrieval (the rewrite output on follow-up turns).
type Response struct {
	Answer    string
	Citations []string
	Query     string
}
