package ports

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// RawItem is one ad-library record as the actor emits it. Every field is
// optional; the provider is inconsistent about types, so the loose ones use
// the lenient wrappers below.
type RawItem struct {
	AdArchiveID       FlexString `json:"ad_archive_id"`
	AdID              FlexString `json:"ad_id"`
	PageID            FlexString `json:"page_id"`
	PageName          string     `json:"page_name"`
	IsActive          bool       `json:"is_active"`
	StartDate         Timestamp  `json:"start_date"`
	EndDate           Timestamp  `json:"end_date"`
	PublisherPlatform []string   `json:"publisher_platform"`
	AdLibraryURL      string     `json:"ad_library_url"`
	Snapshot          Snapshot   `json:"snapshot"`
}

// Snapshot is the creative payload of a RawItem.
type Snapshot struct {
	PageName        string          `json:"page_name"`
	LinkTitle       string          `json:"link_title"`
	LinkURL         string          `json:"link_url"`
	LinkDescription string          `json:"link_description"`
	Body            SnapshotBody    `json:"body"`
	Cards           []Card          `json:"cards"`
	Images          []SnapshotImage `json:"images"`
	Videos          []SnapshotVideo `json:"videos"`
}

// Card is one creative card. Single-image ads usually carry exactly one.
type Card struct {
	Title                string `json:"title"`
	Body                 string `json:"body"`
	LinkURL              string `json:"link_url"`
	LinkDescription      string `json:"link_description"`
	ResizedImageURL      string `json:"resized_image_url"`
	OriginalImageURL     string `json:"original_image_url"`
	VideoPreviewImageURL string `json:"video_preview_image_url"`
	VideoHDURL           string `json:"video_hd_url"`
	VideoSDURL           string `json:"video_sd_url"`
}

// HasVideo reports whether any video field is set on the card.
func (c Card) HasVideo() bool {
	return c.VideoHDURL != "" || c.VideoSDURL != "" || c.VideoPreviewImageURL != ""
}

type SnapshotImage struct {
	ResizedImageURL  string `json:"resized_image_url"`
	OriginalImageURL string `json:"original_image_url"`
}

type SnapshotVideo struct {
	VideoPreviewImageURL string `json:"video_preview_image_url"`
	VideoHDURL           string `json:"video_hd_url"`
	VideoSDURL           string `json:"video_sd_url"`
}

// HasVideo reports whether the entry carries any video field.
func (v SnapshotVideo) HasVideo() bool {
	return v.VideoHDURL != "" || v.VideoSDURL != "" || v.VideoPreviewImageURL != ""
}

// SnapshotBody accepts both {"text": "..."} and a bare string.
type SnapshotBody struct {
	Text string `json:"text"`
}

func (b *SnapshotBody) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &b.Text)
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.Text = obj.Text
	return nil
}

// FlexString decodes from either a JSON string or a JSON number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// Timestamp holds a provider date that arrives either as Unix seconds or as
// an already-formatted string.
type Timestamp struct {
	Unix  int64
	Text  string
	Valid bool
}

// UnixTimestamp builds a Timestamp from Unix seconds.
func UnixTimestamp(sec int64) Timestamp {
	return Timestamp{Unix: sec, Valid: true}
}

// TextTimestamp builds a Timestamp from a preformatted string.
func TextTimestamp(s string) Timestamp {
	return Timestamp{Text: s, Valid: s != ""}
}

// IsText reports whether the timestamp arrived as a string.
func (t Timestamp) IsText() bool {
	return t.Valid && t.Text != ""
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*t = TextTimestamp(v)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*t = UnixTimestamp(int64(f))
	return nil
}
