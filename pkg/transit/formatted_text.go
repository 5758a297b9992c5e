package transit

import "strings"

type TextSegment struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Small  bool   `json:"small,omitempty"`
	Colour uint32 `json:"colour,omitempty"`
	Image  string `json:"image,omitempty"`
}

type FormattedText []TextSegment

func PlainText(text string) FormattedText {
	return FormattedText{{Text: text}}
}

func (f FormattedText) String() string {
	var builder strings.Builder
	for _, segment := range f {
		builder.WriteString(segment.Text)
	}
	return builder.String()
}

func (f FormattedText) IsEmpty() bool {
	for _, segment := range f {
		if segment.Text != "" {
			return false
		}
	}
	return true
}

func (f FormattedText) Append(segments ...TextSegment) FormattedText {
	return append(f, segments...)
}

// WithColour returns a copy with every segment recoloured
func (f FormattedText) WithColour(colour uint32) FormattedText {
	coloured := make(FormattedText, len(f))
	for i, segment := range f {
		segment.Colour = colour
		coloured[i] = segment
	}
	return coloured
}
