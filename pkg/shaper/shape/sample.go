package shape

// Sample is one labelled training string.
type Sample struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}
