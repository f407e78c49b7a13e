package request

type SubmitRunRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}
