package api

// Movie is the wire form of a movie. Img is a string for link and disk
// images, an ImageRef for blob stores, or null.
type Movie struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Summary *string `json:"summary"`
	Img     any     `json:"img"`
}

type ImageRef struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// MovieProto is the JSON body accepted by create and update. Img is only
// meaningful when the server keeps images as links.
type MovieProto struct {
	Name    *string `json:"name"`
	Summary *string `json:"summary"`
	Img     *string `json:"img"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
