package books

import "mime/multipart"

type CreateBookPayload struct {
	Title      string `json:"title" mod:"trim" validate:"required,max=255"`
	AuthorName string `json:"author_name" mod:"trim" validate:"required,max=255"`
	ISBN       string `json:"isbn" mod:"trim" validate:"required,isbn"`
	Synopsis   string `json:"synopsis" mod:"plaintext" validate:"max=4000"`
	Shareable  bool   `json:"shareable"`
}

// UploadCoverPayload receives the multipart "file" part.
type UploadCoverPayload struct {
	FormFiles map[string]*multipart.FileHeader `json:"-"`
}
