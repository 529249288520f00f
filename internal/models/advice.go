package models

// AdviceResponse is the body of a successful upload_and_query call
type AdviceResponse struct {
	Analysis        string `json:"analysis" example:"## Skin Type\nCombination skin with an oily T-zone..."`
	Recommendations string `json:"recommendations" example:"## Skin Analysis\n...\n## Recommended Products\n..."`
}

// ErrorResponse is returned with every 4xx/5xx status
type ErrorResponse struct {
	Detail string `json:"detail" example:"Empty file"`
}
