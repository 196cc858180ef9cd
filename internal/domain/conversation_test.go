package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestMessageJSON(t *testing.T) {
	msg := Message{
		ID:   "m1",
		Role: RoleUser,
		Parts: []Part{
			TextPart{Text: "Solve this: "},
			FilePart{MediaType: "image/png", URL: "data:image/png;base64,AAAA", Filename: "hw.png"},
			TextPart{Text: "please"},
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if !strings.Contains(string(data), `"type":"file"`) {
		t.Errorf("encoded message missing file tag: %s", data)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if got.Text() != "Solve this: please" {
		t.Errorf("Text() = %q", got.Text())
	}
	if imgs := got.Images(); len(imgs) != 1 || imgs[0].Filename != "hw.png" {
		t.Errorf("Images() = %+v", imgs)
	}
}

func TestMessageUnknownPart(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"id":"x","role":"user","parts":[{"type":"tool-call"}]}`), &m)
	if !errors.Is(err, ErrInvalidPart) {
		t.Errorf("Unmarshal error = %v; want ErrInvalidPart", err)
	}
}

func TestConversationMetadata(t *testing.T) {
	c := Conversation{
		ID:        "conv_1",
		Title:     "Quadratics",
		Messages:  []Message{NewTextMessage("a", RoleUser, "hi"), NewTextMessage("b", RoleAssistant, "hello")},
		Timestamp: 10,
		UpdatedAt: 20,
	}
	meta := c.Metadata()
	if meta.MessageCount != 2 || meta.UpdatedAt != 20 {
		t.Errorf("Metadata() = %+v", meta)
	}
	last, ok := c.LastMessage()
	if !ok || last.ID != "b" {
		t.Errorf("LastMessage() = %+v, %v", last, ok)
	}
	if _, ok := (Conversation{}).LastMessage(); ok {
		t.Error("LastMessage() on empty conversation should report false")
	}
}

func TestValidateImage(t *testing.T) {
	tests := []struct {
		mediaType string
		size      int64
		want      error
	}{
		{"image/png", 1024, nil},
		{"image/jpeg", MaxImageSize, nil},
		{"image/jpg", 10, nil},
		{"image/webp", 10, nil},
		{"image/gif", 10, ErrUnsupportedImage},
		{"application/pdf", 10, ErrUnsupportedImage},
		{"image/png", MaxImageSize + 1, ErrImageTooLarge},
	}
	for _, tt := range tests {
		if err := ValidateImage(tt.mediaType, tt.size); !errors.Is(err, tt.want) {
			t.Errorf("ValidateImage(%q, %d) = %v; want %v", tt.mediaType, tt.size, err, tt.want)
		}
	}
}

func TestNewImageMessage(t *testing.T) {
	img := FilePart{MediaType: "image/png", URL: "data:image/png;base64,AA==", Filename: "a.png"}
	m := NewImageMessage("m1", "", img)
	if m.Role != RoleUser || m.Text() != DefaultImageQuestion || len(m.Images()) != 1 {
		t.Errorf("NewImageMessage() = %+v", m)
	}
}
