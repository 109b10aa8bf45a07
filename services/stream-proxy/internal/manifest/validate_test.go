package manifest

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"plain", "#EXTM3U\n#EXT-X-VERSION:3\nseg.ts", nil},
		{"bom", "\ufeff#EXTM3U\nseg.ts", nil},
		{"leading blank lines", "\n  \r\n#EXTM3U\nseg.ts", nil},
		{"crlf", "#EXTM3U\r\nseg.ts\r\n", nil},
		{"padded header", "   #EXTM3U   \nseg.ts", nil},
		{"empty", "", ErrNotPlaylist},
		{"wrong header", "#EXTM3U8\nseg.ts", ErrNotPlaylist},
		{"html page", "<!DOCTYPE html><html><body>blocked</body></html>", ErrNotPlaylist},
		{"header then html", "#EXTM3U\n<html>\n<body>err</body>", ErrHTMLBody},
		{"script tag", "#EXTM3U\n< script>alert(1)</script>", ErrHTMLBody},
		{"uppercase meta", "#EXTM3U\n<META charset=utf-8>", ErrHTMLBody},
		{"tag name prefix only", "#EXTM3U\n#EXTINF:1,<headline>\nseg.ts", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate: want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_HTMLPastSniffWindowIgnored(t *testing.T) {
	body := "#EXTM3U\n" + strings.Repeat("#EXT-X-PAD\n", SniffLen/10) + "<html>"
	if err := Validate([]byte(body)); err != nil {
		t.Fatalf("markup after the first %d bytes should not be inspected: %v", SniffLen, err)
	}
}

func TestContentTypes(t *testing.T) {
	if !IsPlaylistContentType("Application/VND.Apple.MpegURL; charset=utf-8") {
		t.Fatal("apple mpegurl should be a playlist type")
	}
	if !IsPlaylistContentType("audio/x-mpegurl") {
		t.Fatal("audio/x-mpegurl should be a playlist type")
	}
	if IsPlaylistContentType("video/mp2t") {
		t.Fatal("video/mp2t is not a playlist type")
	}
	if !IsHTMLContentType("Text/HTML; charset=UTF-8") {
		t.Fatal("text/html should be detected case-insensitively")
	}
}
