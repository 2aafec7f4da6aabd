// Package qr encodes identifiers into QR images and parses scanned QR text
// back into typed user/book references.
package qr

import (
	"encoding/base64"
	"strings"

	"github.com/skip2/go-qrcode"
)

type Kind string

const (
	KindUser Kind = "user"
	KindBook Kind = "book"
)

const (
	userPrefix = "USER:"
	bookPrefix = "BOOK:"

	dataURIPrefix = "data:image/png;base64,"
	imageSize     = 256
)

type Payload struct {
	Kind Kind   `json:"type"`
	ID   string `json:"id"`
}

func UserMarker(id string) string { return userPrefix + id }

func BookMarker(id string) string { return bookPrefix + id }

// Encode renders text as a PNG data URI. QR images are decoration, so any
// failure yields "" instead of an error.
func Encode(text string) string {
	png, err := qrcode.Encode(text, qrcode.Medium, imageSize)
	if err != nil || len(png) == 0 {
		return ""
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

// Decode parses "USER:<id>" or "BOOK:<id>". Anything else is nil. An empty id
// after a known prefix is returned as is.
func Decode(text string) *Payload {
	switch {
	case strings.HasPrefix(text, userPrefix):
		return &Payload{Kind: KindUser, ID: strings.TrimPrefix(text, userPrefix)}
	case strings.HasPrefix(text, bookPrefix):
		return &Payload{Kind: KindBook, ID: strings.TrimPrefix(text, bookPrefix)}
	}
	return nil
}
