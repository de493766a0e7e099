package feedback

type SubmitPayload struct {
	BookID  int     `json:"book_id" validate:"required,gt=0"`
	Note    float64 `json:"note" validate:"min=0,max=5,halfstep"`
	Comment string  `json:"comment" mod:"plaintext" validate:"required,max=2000"`
}
